package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/writersinn/taskhub/internal/domain/session"
	"github.com/writersinn/taskhub/internal/observability"
)

type SessionsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewSessionsRepo(pool *pgxpool.Pool, prom *observability.Prom) *SessionsRepo {
	return &SessionsRepo{pool: pool, prom: prom}
}

func (r *SessionsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *SessionsRepo) Create(ctx context.Context, s session.Session) error {
	return r.observe("sessions.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO sessions (id, user_id, token_hash, expires_at, consumed_at, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6)`,
			s.ID, s.UserID, s.TokenHash, s.ExpiresAt, s.ConsumedAt, s.CreatedAt,
		)
		return err
	})
}

// Consume marks the session used and returns it. The guards in the UPDATE
// make the magic link single-use; when nothing matches we re-read the row
// to distinguish unknown, expired and already-used tokens.
func (r *SessionsRepo) Consume(ctx context.Context, tokenHash string) (s session.Session, err error) {
	err = r.observe("sessions.consume", func() error {
		return r.pool.QueryRow(ctx, `
			UPDATE sessions
			SET consumed_at = NOW()
			WHERE token_hash = $1
			  AND consumed_at IS NULL
			  AND expires_at > NOW()
			RETURNING id, user_id, token_hash, expires_at, consumed_at, created_at
		`, tokenHash).Scan(&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt, &s.ConsumedAt, &s.CreatedAt)
	})

	if err == nil {
		return
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return
	}

	var expiresAt time.Time
	var consumedAt *time.Time

	err = r.observe("sessions.consume.reread", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT expires_at, consumed_at FROM sessions WHERE token_hash = $1`, tokenHash,
		).Scan(&expiresAt, &consumedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = session.ErrNotFound
		}
		return
	}

	if consumedAt != nil {
		err = session.ErrConsumed
		return
	}

	err = session.ErrExpired
	return
}
