package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/writersinn/taskhub/internal/domain/assignment"
	"github.com/writersinn/taskhub/internal/domain/task"
	"github.com/writersinn/taskhub/internal/domain/user"
	"github.com/writersinn/taskhub/internal/observability"
)

type AssignmentsRepo struct {
	pool           *pgxpool.Pool
	prom           *observability.Prom
	cooldown       time.Duration
	deadlineOffset time.Duration
}

func NewAssignmentsRepo(pool *pgxpool.Pool, prom *observability.Prom, cooldown, deadlineOffset time.Duration) *AssignmentsRepo {
	return &AssignmentsRepo{
		pool:           pool,
		prom:           prom,
		cooldown:       cooldown,
		deadlineOffset: deadlineOffset,
	}
}

func (repo *AssignmentsRepo) observe(op string, fn func() error) error {
	if repo.prom != nil {
		return repo.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (repo *AssignmentsRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return repo.pool.BeginTx(ctx, pgx.TxOptions{})
}

const assignmentColumns = `id, user_id, task_id, status, deadline, file_path, created_at, updated_at`

func scanAssignment(row pgx.Row) (assignment.Assignment, error) {
	var a assignment.Assignment
	var status string

	err := row.Scan(&a.ID, &a.UserID, &a.TaskID, &status, &a.Deadline, &a.FilePath, &a.CreatedAt, &a.UpdatedAt)

	a.Status = assignment.Status(status)
	return a, err
}

// CreateTx runs the eligibility gate and the insert in the caller's
// transaction. The user row is locked first so two concurrent take-task
// requests by the same user serialize instead of both passing the check.
//
// Eligibility: a pending assignment always blocks; a completed assignment
// blocks until the cooldown window since it was taken has passed.
func (repo *AssignmentsRepo) CreateTx(ctx context.Context, tx pgx.Tx, userID, taskID string) (a assignment.Assignment, err error) {
	err = repo.observe("assignments.create_tx.user_lock", func() error {
		var dummy string
		return tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&dummy)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = user.ErrNotFound
		}
		return
	}

	// load the rows that could still block and let the domain rule decide
	now := time.Now().UTC()
	windowStart := now.Add(-repo.cooldown)

	var existing []assignment.Assignment

	err = repo.observe("assignments.create_tx.eligibility_check", func() error {
		rows, e := tx.Query(ctx, `
			SELECT status, created_at FROM assignments
			WHERE user_id = $1
			  AND (status = 'pending' OR created_at > $2)
		`, userID, windowStart)
		if e != nil {
			return e
		}
		defer rows.Close()

		for rows.Next() {
			var prev assignment.Assignment
			var status string

			if e := rows.Scan(&status, &prev.CreatedAt); e != nil {
				return e
			}
			prev.Status = assignment.Status(status)
			existing = append(existing, prev)
		}
		return rows.Err()
	})

	if err != nil {
		return
	}

	for _, prev := range existing {
		if prev.Blocks(now, repo.cooldown) {
			err = assignment.ErrCooldownActive
			return
		}
	}

	a = assignment.New(userID, taskID, repo.deadlineOffset)

	err = repo.observe("assignments.create_tx.insert", func() error {
		_, e := tx.Exec(ctx, `
			INSERT INTO assignments (id, user_id, task_id, status, deadline, file_path, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, a.ID, a.UserID, a.TaskID, string(a.Status), a.Deadline, a.FilePath, a.CreatedAt, a.UpdatedAt)
		return e
	})

	if err != nil {
		return
	}

	return
}

func (repo *AssignmentsRepo) GetByID(ctx context.Context, id string) (assignment.Assignment, error) {
	var a assignment.Assignment

	err := repo.observe("assignments.get_by_id", func() error {
		var err error
		a, err = scanAssignment(repo.pool.QueryRow(ctx,
			`SELECT `+assignmentColumns+` FROM assignments WHERE id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return assignment.Assignment{}, assignment.ErrNotFound
		}
		return assignment.Assignment{}, err
	}
	return a, nil
}

// SubmitTx flips a pending assignment to completed and attaches the
// submitted file. The UPDATE carries the ownership and status guards;
// when it matches nothing we re-read the row to say why.
func (repo *AssignmentsRepo) SubmitTx(ctx context.Context, tx pgx.Tx, assignmentID, userID, filePath string) (a assignment.Assignment, err error) {
	err = repo.observe("assignments.submit_tx.update", func() error {
		var e error
		a, e = scanAssignment(tx.QueryRow(ctx, `
			UPDATE assignments
			SET status = 'completed', file_path = $3, updated_at = NOW()
			WHERE id = $1 AND user_id = $2 AND status = 'pending'
			RETURNING `+assignmentColumns,
			assignmentID, userID, filePath))
		return e
	})

	if err == nil {
		return
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return
	}

	// the guarded update missed; find out which precondition failed
	var existing assignment.Assignment

	err = repo.observe("assignments.submit_tx.reread", func() error {
		var e error
		existing, e = scanAssignment(tx.QueryRow(ctx,
			`SELECT `+assignmentColumns+` FROM assignments WHERE id = $1`, assignmentID))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = assignment.ErrNotFound
		}
		return
	}

	if existing.UserID != userID {
		err = assignment.ErrNotOwner
		return
	}

	err = assignment.ErrAlreadySubmitted
	return
}

// ListByUser returns the user's assignments, each merged with its task.
func (repo *AssignmentsRepo) ListByUser(ctx context.Context, userID string) (items []assignment.WithTask, err error) {
	var rows pgx.Rows

	err = repo.observe("assignments.list_by_user", func() error {
		rows, err = repo.pool.Query(ctx, `
			SELECT a.id, a.user_id, a.task_id, a.status, a.deadline, a.file_path, a.created_at, a.updated_at,
			       t.id, t.title, t.description, t.price, t.file_path, t.created_at, t.updated_at
			FROM assignments a
			JOIN tasks t ON t.id = a.task_id
			WHERE a.user_id = $1
			ORDER BY a.created_at DESC, a.id DESC
		`, userID)
		return err
	})

	if err != nil {
		return
	}

	defer rows.Close()

	items = make([]assignment.WithTask, 0)

	for rows.Next() {
		var a assignment.Assignment
		var status string
		var t task.Task

		e := rows.Scan(
			&a.ID, &a.UserID, &a.TaskID, &status, &a.Deadline, &a.FilePath, &a.CreatedAt, &a.UpdatedAt,
			&t.ID, &t.Title, &t.Description, &t.Price, &t.FilePath, &t.CreatedAt, &t.UpdatedAt,
		)

		if e != nil {
			err = e
			return
		}

		a.Status = assignment.Status(status)
		items = append(items, assignment.WithTask{Assignment: a, Task: t})
	}

	err = rows.Err()
	return
}
