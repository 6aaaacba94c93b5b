// Package sessionstore persists scs sessions in Postgres so session-owned
// trackers survive an api restart
package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// DB is the subset of *pgxpool.Pool the store needs
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	token  TEXT PRIMARY KEY,
	data   BYTEA NOT NULL,
	expiry TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions (expiry);`

// Postgres implements scs.Store and scs.CtxStore
type Postgres struct {
	db DB
}

func NewPostgres(db DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates the sessions table if it does not exist
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}
	return nil
}

func (p *Postgres) Find(token string) ([]byte, bool, error) {
	return p.FindCtx(context.Background(), token)
}

func (p *Postgres) FindCtx(ctx context.Context, token string) ([]byte, bool, error) {
	var b []byte
	err := p.db.QueryRow(ctx,
		`SELECT data FROM sessions WHERE token = $1 AND current_timestamp < expiry`, token,
	).Scan(&b)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find session: %w", err)
	}
	return b, true, nil
}

func (p *Postgres) Commit(token string, b []byte, expiry time.Time) error {
	return p.CommitCtx(context.Background(), token, b, expiry)
}

func (p *Postgres) CommitCtx(ctx context.Context, token string, b []byte, expiry time.Time) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO sessions (token, data, expiry) VALUES ($1, $2, $3)
		ON CONFLICT (token) DO UPDATE SET data = EXCLUDED.data, expiry = EXCLUDED.expiry`,
		token, b, expiry.UTC(),
	)
	if err != nil {
		return fmt.Errorf("commit session: %w", err)
	}
	return nil
}

func (p *Postgres) Delete(token string) error {
	return p.DeleteCtx(context.Background(), token)
}

func (p *Postgres) DeleteCtx(ctx context.Context, token string) error {
	if _, err := p.db.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions past their expiry and returns how many
func (p *Postgres) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := p.db.Exec(ctx, `DELETE FROM sessions WHERE expiry < current_timestamp`)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RunCleanup deletes expired sessions every interval until ctx is done
func (p *Postgres) RunCleanup(ctx context.Context, interval time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.DeleteExpired(ctx)
			if err != nil {
				logger.Error().Err(err).Msg("session cleanup failed")
				continue
			}
			if n > 0 {
				logger.Debug().Int64("deleted", n).Msg("expired sessions removed")
			}
		}
	}
}
