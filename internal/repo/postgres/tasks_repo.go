package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/writersinn/taskhub/internal/domain/task"
	"github.com/writersinn/taskhub/internal/observability"
)

type TasksRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewTasksRepo(pool *pgxpool.Pool, prom *observability.Prom) *TasksRepo {
	return &TasksRepo{pool: pool, prom: prom}
}

func (r *TasksRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const taskColumns = `id, title, description, price, file_path, created_at, updated_at`

func scanTask(row pgx.Row) (task.Task, error) {
	var t task.Task

	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Price, &t.FilePath, &t.CreatedAt, &t.UpdatedAt)

	return t, err
}

func (r *TasksRepo) Create(ctx context.Context, t task.Task) (task.Task, error) {
	err := r.observe("tasks.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO tasks (`+taskColumns+`)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			t.ID, t.Title, t.Description, t.Price, t.FilePath, t.CreatedAt, t.UpdatedAt,
		)
		return err
	})

	if err != nil {
		return task.Task{}, err
	}
	return t, nil
}

func (r *TasksRepo) GetByID(ctx context.Context, id string) (task.Task, error) {
	var t task.Task

	err := r.observe("tasks.get_by_id", func() error {
		var err error
		t, err = scanTask(r.pool.QueryRow(ctx,
			`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return task.Task{}, task.ErrNotFound
		}
		return task.Task{}, err
	}
	return t, nil
}

func (r *TasksRepo) List(ctx context.Context) (tasks []task.Task, err error) {
	var rows pgx.Rows

	err = r.observe("tasks.list", func() error {
		rows, err = r.pool.Query(ctx,
			`SELECT `+taskColumns+` FROM tasks ORDER BY created_at ASC, id ASC`)
		return err
	})

	if err != nil {
		return
	}

	defer rows.Close()

	tasks = make([]task.Task, 0)

	for rows.Next() {
		t, e := scanTask(rows)

		if e != nil {
			err = e
			return
		}
		tasks = append(tasks, t)
	}

	err = rows.Err()
	return
}

// ListAvailableForUser returns tasks the user has never been assigned,
// in any status. A completed task never reappears for the same user.
func (r *TasksRepo) ListAvailableForUser(ctx context.Context, userID string) (tasks []task.Task, err error) {
	var rows pgx.Rows

	err = r.observe("tasks.list_available_for_user", func() error {
		rows, err = r.pool.Query(ctx, `
			SELECT `+taskColumns+`
			FROM tasks t
			WHERE NOT EXISTS (
				SELECT 1 FROM assignments a
				WHERE a.task_id = t.id AND a.user_id = $1
			)
			ORDER BY t.created_at ASC, t.id ASC
		`, userID)
		return err
	})

	if err != nil {
		return
	}

	defer rows.Close()

	tasks = make([]task.Task, 0)

	for rows.Next() {
		t, e := scanTask(rows)

		if e != nil {
			err = e
			return
		}
		tasks = append(tasks, t)
	}

	err = rows.Err()
	return
}
