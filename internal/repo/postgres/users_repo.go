package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/writersinn/taskhub/internal/domain/user"
	"github.com/writersinn/taskhub/internal/observability"
)

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

const userColumns = `id, email, name, phone, subscribed, balance, role, password_hash, created_at, updated_at`

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.Phone,
		&u.Subscribed,
		&u.Balance,
		&u.Role,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	op := "users.create"

	err := r.observe(op, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (`+userColumns+`)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			u.ID, u.Email, u.Name, u.Phone, u.Subscribed, u.Balance, u.Role, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_email", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_id", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) UpdateSubscription(ctx context.Context, email string, subscribed bool) (user.User, error) {
	var u user.User

	err := r.observe("users.update_subscription", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`UPDATE users SET subscribed = $2, updated_at = NOW()
			 WHERE email = $1
			 RETURNING `+userColumns, email, subscribed))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

// CreditBalanceTx adds amount to the user's balance inside the caller's
// transaction. The credit rides the same commit as the assignment status
// flip so the two can never partially apply.
func (r *UsersRepo) CreditBalanceTx(ctx context.Context, tx pgx.Tx, userID string, amount float64) (newBalance float64, err error) {
	err = r.observe("users.credit_balance_tx", func() error {
		return tx.QueryRow(ctx,
			`UPDATE users SET balance = balance + $2, updated_at = NOW()
			 WHERE id = $1
			 RETURNING balance`, userID, amount).Scan(&newBalance)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = user.ErrNotFound
		}
		return
	}
	return
}

func (r *UsersRepo) List(ctx context.Context) (users []user.User, err error) {
	var rows pgx.Rows

	err = r.observe("users.list", func() error {
		rows, err = r.pool.Query(ctx,
			`SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`)
		return err
	})

	if err != nil {
		return
	}

	defer rows.Close()

	users = make([]user.User, 0)

	for rows.Next() {
		u, e := scanUser(rows)

		if e != nil {
			err = e
			return
		}
		users = append(users, u)
	}

	err = rows.Err()
	return
}

func (r *UsersRepo) ListSubscribed(ctx context.Context) (users []user.User, err error) {
	var rows pgx.Rows

	err = r.observe("users.list_subscribed", func() error {
		rows, err = r.pool.Query(ctx,
			`SELECT `+userColumns+` FROM users WHERE subscribed = TRUE ORDER BY created_at ASC, id ASC`)
		return err
	})

	if err != nil {
		return
	}

	defer rows.Close()

	users = make([]user.User, 0)

	for rows.Next() {
		u, e := scanUser(rows)

		if e != nil {
			err = e
			return
		}
		users = append(users, u)
	}

	err = rows.Err()
	return
}

// DeleteSubscribed purges every subscribed user. Destructive; only reachable
// behind the explicitly confirmed admin endpoint.
func (r *UsersRepo) DeleteSubscribed(ctx context.Context) (int64, error) {
	var tag pgconn.CommandTag
	var err error

	err = r.observe("users.delete_subscribed", func() error {
		tag, err = r.pool.Exec(ctx, `DELETE FROM users WHERE subscribed = TRUE`)
		return err
	})

	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
