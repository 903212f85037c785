package postgres

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/writersinn/taskhub/internal/domain/job"
	"github.com/writersinn/taskhub/internal/observability"
)

var ErrJobNotFailed = errors.New("job is not failed")

type JobsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewJobsRepo(pool *pgxpool.Pool, prom *observability.Prom) *JobsRepo {
	return &JobsRepo{pool: pool, prom: prom}
}

func (r *JobsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const jobColumns = `id, type, payload, status, attempts, max_attempts, run_at, locked_at, locked_by, last_error, idempotency_key, user_id, created_at, updated_at`

func scanJob(row pgx.Row) (job.Job, error) {
	var j job.Job
	var status string

	err := row.Scan(
		&j.ID, &j.Type, &j.Payload, &status,
		&j.Attempts, &j.MaxAttempts,
		&j.RunAt, &j.LockedAt, &j.LockedBy,
		&j.LastError, &j.IdempotencyKey, &j.UserID, &j.CreatedAt, &j.UpdatedAt,
	)

	j.Status = job.Status(status)
	return j, err
}

func (r *JobsRepo) Create(ctx context.Context, req job.CreateRequest) (job.Job, error) {
	j := job.New(req)

	err := r.observe("jobs.create", func() error {
		_, err := r.pool.Exec(ctx, `INSERT INTO jobs (`+jobColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
			j.ID, j.Type, j.Payload, string(j.Status), j.Attempts, j.MaxAttempts, j.RunAt,
			j.LockedAt, j.LockedBy, j.LastError, j.IdempotencyKey, j.UserID, j.CreatedAt, j.UpdatedAt)
		return err
	})

	if err != nil {
		return job.Job{}, err
	}

	return j, nil
}

// CreateTx enqueues in the caller's transaction so the job commits (or
// rolls back) together with the ledger write that caused it.
func (r *JobsRepo) CreateTx(ctx context.Context, tx pgx.Tx, req job.CreateRequest) (job.Job, error) {
	j := job.New(req)

	err := r.observe("jobs.create_tx", func() error {
		_, err := tx.Exec(ctx, `INSERT INTO jobs (`+jobColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
			j.ID, j.Type, j.Payload, string(j.Status), j.Attempts, j.MaxAttempts, j.RunAt,
			j.LockedAt, j.LockedBy, j.LastError, j.IdempotencyKey, j.UserID, j.CreatedAt, j.UpdatedAt)
		return err
	})

	if err != nil {
		return job.Job{}, err
	}
	return j, nil
}

func (r *JobsRepo) MarkDone(ctx context.Context, id string) error {
	var tag pgconn.CommandTag
	var err error

	err = r.observe("jobs.mark_done", func() error {
		tag, err = r.pool.Exec(ctx,
			`UPDATE jobs
			SET status = 'done',
				locked_at = NULL,
				locked_by = NULL,
				last_error = NULL,
				updated_at = NOW()
			WHERE id = $1
			`, id)
		return err
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return job.ErrJobNotFound
	}
	return nil
}

func (r *JobsRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	var tag pgconn.CommandTag
	var err error

	err = r.observe("jobs.mark_failed", func() error {
		tag, err = r.pool.Exec(ctx, `
			UPDATE jobs
			SET status = 'failed',
			    locked_at = NULL,
			    locked_by = NULL,
			    last_error = $2,
			    updated_at = NOW()
			WHERE id = $1
		`, id, errMsg)
		return err
	})

	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return job.ErrJobNotFound
	}
	return nil
}

// Reschedule is used for retries/backoff.
func (r *JobsRepo) Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error {
	var tag pgconn.CommandTag
	var err error

	err = r.observe("jobs.reschedule", func() error {
		tag, err = r.pool.Exec(ctx, `
			UPDATE jobs
			SET status = 'pending',
			    attempts = attempts + 1,
			    run_at = $2,
			    locked_at = NULL,
			    locked_by = NULL,
			    last_error = $3,
			    updated_at = NOW()
			WHERE id = $1
		`, id, runAt, errMsg)
		return err
	})

	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return job.ErrJobNotFound
	}
	return nil
}

func (r *JobsRepo) ClaimNext(ctx context.Context, workerID string) (job.Job, error) {
	// Single statement claim using the SKIP LOCKED pattern.
	// Only claims jobs ready to run (pending, run_at <= now), and not exceeded max_attempts.
	var j job.Job
	var status string
	var err error

	err = r.observe("jobs.claim_next", func() error {
		return r.pool.QueryRow(ctx, `
			WITH next AS (
				SELECT id
				FROM jobs
				WHERE status = 'pending'
				  AND run_at <= NOW()
				  AND attempts < max_attempts
				ORDER BY run_at ASC, created_at ASC
				FOR UPDATE SKIP LOCKED
				LIMIT 1
			)
			UPDATE jobs
			SET status = 'processing',
			    locked_at = NOW(),
			    locked_by = $1,
			    updated_at = NOW()
			WHERE id = (SELECT id FROM next)
			RETURNING `+jobColumns,
			workerID).Scan(
			&j.ID, &j.Type, &j.Payload, &status,
			&j.Attempts, &j.MaxAttempts,
			&j.RunAt, &j.LockedAt, &j.LockedBy,
			&j.LastError, &j.IdempotencyKey, &j.UserID, &j.CreatedAt, &j.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return job.Job{}, job.ErrJobNotFound // treat as "no job available"
		}
		return job.Job{}, err
	}

	j.Status = job.Status(status)
	return j, nil
}

func (r *JobsRepo) GetByIdempotencyKey(ctx context.Context, key string) (job.Job, error) {
	var j job.Job

	err := r.observe("jobs.get_by_idempotency_key", func() error {
		var e error
		j, e = scanJob(r.pool.QueryRow(ctx,
			`SELECT `+jobColumns+` FROM jobs WHERE idempotency_key = $1`, key))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return job.Job{}, job.ErrJobNotFound
		}
		return job.Job{}, err
	}

	return j, nil
}

func (r *JobsRepo) GetByID(ctx context.Context, id string) (job.Job, error) {
	var j job.Job

	err := r.observe("jobs.admin.get_by_id", func() error {
		var e error
		j, e = scanJob(r.pool.QueryRow(ctx,
			`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return job.Job{}, job.ErrJobNotFound
		}
		return job.Job{}, err
	}

	return j, nil
}

// List returns the most recently touched jobs, optionally filtered by status.
func (r *JobsRepo) List(ctx context.Context, status *string, limit int) (items []job.Job, err error) {
	if limit <= 0 {
		limit = 20
	}

	q := `SELECT ` + jobColumns + ` FROM jobs`
	args := []any{}

	if status != nil {
		q += ` WHERE status = $1`
		args = append(args, *status)
	}

	q += ` ORDER BY updated_at DESC, id DESC LIMIT ` + strconv.Itoa(limit)

	var rows pgx.Rows

	err = r.observe("jobs.admin.list", func() error {
		rows, err = r.pool.Query(ctx, q, args...)
		return err
	})

	if err != nil {
		return
	}

	defer rows.Close()

	items = make([]job.Job, 0)

	for rows.Next() {
		j, e := scanJob(rows)

		if e != nil {
			err = e
			return
		}
		items = append(items, j)
	}

	err = rows.Err()
	return
}

// Retry puts a single failed job back in the queue.
func (r *JobsRepo) Retry(ctx context.Context, id string) error {
	var status string

	err := r.observe("jobs.admin.retry.check_status", func() error {
		return r.pool.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1`, id).Scan(&status)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return job.ErrJobNotFound
		}
		return err
	}

	if status != string(job.StatusFailed) {
		return ErrJobNotFailed
	}

	return r.observe("jobs.admin.retry.requeue", func() error {
		_, e := r.pool.Exec(ctx, `
			UPDATE jobs
			SET status = 'pending',
			    attempts = 0,
			    run_at = NOW(),
			    locked_at = NULL,
			    locked_by = NULL,
			    last_error = NULL,
			    updated_at = NOW()
			WHERE id = $1
		`, id)
		return e
	})
}

// RetryManyFailed requeues up to limit dead jobs, oldest failures last.
func (r *JobsRepo) RetryManyFailed(ctx context.Context, limit int) (int64, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	var tag pgconn.CommandTag

	err := r.observe("jobs.admin.retry_many_failed", func() error {
		var e error
		tag, e = r.pool.Exec(ctx, `
			WITH picked AS (
				SELECT id
				FROM jobs
				WHERE status = 'failed'
				ORDER BY updated_at DESC
				LIMIT $1
			)
			UPDATE jobs
			SET status = 'pending',
			    attempts = 0,
			    run_at = NOW(),
			    locked_at = NULL,
			    locked_by = NULL,
			    last_error = NULL,
			    updated_at = NOW()
			WHERE id IN (SELECT id FROM picked)
		`, limit)
		return e
	})

	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

// RequeueStaleProcessing releases jobs whose worker died mid-flight:
// anything still marked processing with a lock older than lockTTL.
func (r *JobsRepo) RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error) {
	secs := int64(lockTTL.Seconds())
	if secs <= 0 {
		secs = 30
	}
	var rows int64

	err := r.observe("jobs.requeue_stale", func() error {
		tag, err := r.pool.Exec(ctx, `
			UPDATE jobs
			SET status = 'pending',
			    locked_at = NULL,
			    locked_by = NULL,
			    updated_at = NOW()
			WHERE status = 'processing'
			  AND locked_at IS NOT NULL
			  AND locked_at < NOW() - ($1 * INTERVAL '1 second')
		`, secs)

		if err != nil {
			return err
		}
		rows = tag.RowsAffected()
		return nil
	})

	return rows, err
}
