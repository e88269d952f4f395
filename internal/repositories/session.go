package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/SubhabrataBarik/TaskMaster/internal/models"
)

// SessionRepository persists the token pair in the single-row sessions table.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Load returns the stored pair, or an empty session when none is stored.
func (r *SessionRepository) Load() (models.Session, error) {
	var sess models.Session
	err := r.db.QueryRow(`SELECT access_token, refresh_token FROM sessions WHERE id = 1`).
		Scan(&sess.AccessToken, &sess.RefreshToken)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, nil
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to query session: %w", err)
	}
	return sess, nil
}

// Save upserts both tokens in one statement.
func (r *SessionRepository) Save(sess models.Session) error {
	query := `
		INSERT INTO sessions (id, access_token, refresh_token, updated_at) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, sess.AccessToken, sess.RefreshToken, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete removes the stored pair.
func (r *SessionRepository) Delete() error {
	if _, err := r.db.Exec(`DELETE FROM sessions WHERE id = 1`); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// UpdatedAt returns when the pair was last written.
func (r *SessionRepository) UpdatedAt() (time.Time, error) {
	var updated time.Time
	err := r.db.QueryRow(`SELECT updated_at FROM sessions WHERE id = 1`).Scan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query session: %w", err)
	}
	return updated, nil
}
