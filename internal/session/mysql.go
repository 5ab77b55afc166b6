package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// MySQLStore keeps browser sessions in the console_sessions table so they
// survive a restart of the web console.
type MySQLStore struct {
	db  *sql.DB
	ttl time.Duration
}

func NewMySQLStore(db *sql.DB, ttl time.Duration) *MySQLStore {
	return &MySQLStore{db: db, ttl: ttl}
}

func (m *MySQLStore) Get(ctx context.Context, id string) (Session, error) {
	var s Session
	err := m.db.QueryRowContext(ctx,
		`SELECT access_token, username FROM console_sessions WHERE id = ? AND expires_at > ?`,
		id, time.Now().UTC(),
	).Scan(&s.Token, &s.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("leer sesión %s: %w", id, err)
	}

	if _, err := m.db.ExecContext(ctx,
		`UPDATE console_sessions SET expires_at = ? WHERE id = ?`,
		m.deadline(), id,
	); err != nil {
		return Session{}, fmt.Errorf("renovar sesión %s: %w", id, err)
	}
	return s, nil
}

func (m *MySQLStore) Put(ctx context.Context, id string, s Session) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO console_sessions (id, access_token, username, expires_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE access_token = VALUES(access_token), username = VALUES(username), expires_at = VALUES(expires_at)`,
		id, s.Token, s.Username, m.deadline(),
	)
	if err != nil {
		return fmt.Errorf("guardar sesión %s: %w", id, err)
	}
	return nil
}

func (m *MySQLStore) Delete(ctx context.Context, id string) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM console_sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("borrar sesión %s: %w", id, err)
	}
	return nil
}

// Purge removes expired rows and returns how many were deleted.
func (m *MySQLStore) Purge(ctx context.Context) (int64, error) {
	res, err := m.db.ExecContext(ctx, `DELETE FROM console_sessions WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purgar sesiones: %w", err)
	}
	return res.RowsAffected()
}

func (m *MySQLStore) deadline() time.Time {
	return time.Now().UTC().Add(m.ttl)
}
