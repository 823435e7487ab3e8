package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/roller/internal/models"
	"github.com/desertthunder/roller/internal/shared"
)

// SessionRepository stores sign-in sessions. Sessions are hard-deleted on sign-out or expiry.
type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(session *models.Session) error {
	_, err := r.db.Exec(`INSERT INTO sessions (token, user_id, csrf_token, created_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
		session.Token, session.UserID, session.CSRFToken, session.CreatedAt, session.ExpiresAt,
	)
	if err != nil {
		return wrapWrite(err, "insert", "session")
	}
	return nil
}

// Get returns the session for token. Expired sessions are removed and reported as [shared.ErrSessionExpired].
func (r *SessionRepository) Get(token string) (*models.Session, error) {
	var s models.Session
	err := r.db.QueryRow(`SELECT token, user_id, csrf_token, created_at, expires_at FROM sessions WHERE token = ?`, token).
		Scan(&s.Token, &s.UserID, &s.CSRFToken, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		return nil, wrapGet(err, "session", "")
	}

	if s.Expired(time.Now().UTC()) {
		_ = r.Delete(token)
		return nil, shared.ErrSessionExpired
	}
	return &s, nil
}

func (r *SessionRepository) Delete(token string) error {
	if _, err := r.db.Exec(`DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Purge removes sessions that expired before now and returns how many were removed.
func (r *SessionRepository) Purge(now time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return result.RowsAffected()
}
