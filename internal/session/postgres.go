package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/tr4ction-console/internal/domain"
)

const (
	pgKeyToken = "token"
	pgKeyUser  = "user"
)

// PostgresStore keeps the session as two rows of console_sessions keyed by
// namespace. Writes replace both rows in one transaction.
type PostgresStore struct {
	pool      *pgxpool.Pool
	namespace string
}

// NewPostgresStore builds a store on an existing pool.
func NewPostgresStore(pool *pgxpool.Pool, namespace string) *PostgresStore {
	return &PostgresStore{pool: pool, namespace: namespace}
}

func (p *PostgresStore) Load(ctx context.Context) (Session, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT key, value FROM console_sessions WHERE namespace = $1`, p.namespace)
	if err != nil {
		return Session{}, fmt.Errorf("postgres load session: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string, 2)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Session{}, fmt.Errorf("postgres scan session: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return Session{}, fmt.Errorf("postgres load session: %w", err)
	}

	token := values[pgKeyToken]
	if token == "" {
		return Session{}, nil
	}
	out := Session{Token: token}
	if raw := values[pgKeyUser]; raw != "" {
		var user domain.User
		if err := json.Unmarshal([]byte(raw), &user); err == nil {
			out.User = &user
		}
	}
	return out, nil
}

func (p *PostgresStore) Save(ctx context.Context, s Session) error {
	if err := validate(s); err != nil {
		return err
	}

	var userJSON string
	if s.User != nil {
		data, err := json.Marshal(s.User)
		if err != nil {
			return fmt.Errorf("encode session user: %w", err)
		}
		userJSON = string(data)
	}

	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM console_sessions WHERE namespace = $1`, p.namespace); err != nil {
			return err
		}
		insert := `INSERT INTO console_sessions (namespace, key, value, updated_at) VALUES ($1, $2, $3, now())`
		if _, err := tx.Exec(ctx, insert, p.namespace, pgKeyToken, s.Token); err != nil {
			return err
		}
		if userJSON != "" {
			if _, err := tx.Exec(ctx, insert, p.namespace, pgKeyUser, userJSON); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("postgres save session: %w", err)
	}
	return nil
}

func (p *PostgresStore) Clear(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM console_sessions WHERE namespace = $1`, p.namespace); err != nil {
		return fmt.Errorf("postgres clear session: %w", err)
	}
	return nil
}
