package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/chat-relay/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository using SQLite.
type SessionRepository struct {
	pool *ConnectionPool
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// CreateSession stores a new session issued at login.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if session.ID == "" || strings.TrimSpace(session.Token) == "" || session.DisplayName == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO sessions (id, token, display_name, is_admin, expires_at, created_at, updated_at, revoked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	var revokedAt sql.NullString
	if session.RevokedAt != nil {
		revokedAt = sql.NullString{String: session.RevokedAt.UTC().Format(time.RFC3339), Valid: true}
	}

	_, err := r.pool.db.ExecContext(ctx, query,
		session.ID,
		session.Token,
		session.DisplayName,
		boolToInt(session.IsAdmin),
		session.ExpiresAt.UTC().Format(time.RFC3339),
		session.CreatedAt.UTC().Format(time.RFC3339),
		session.UpdatedAt.UTC().Format(time.RFC3339),
		revokedAt,
	)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}
	return session, nil
}

// GetSession retrieves a session by its bearer token.
func (r *SessionRepository) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, token, display_name, is_admin, expires_at, created_at, updated_at, revoked_at
		FROM sessions
		WHERE token = ?
	`

	var session persistence.Session
	var isAdmin int
	var expiresAtStr, createdAtStr, updatedAtStr string
	var revokedAt sql.NullString

	err := r.pool.db.QueryRowContext(ctx, query, trimmed).Scan(
		&session.ID,
		&session.Token,
		&session.DisplayName,
		&isAdmin,
		&expiresAtStr,
		&createdAtStr,
		&updatedAtStr,
		&revokedAt,
	)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}

	session.IsAdmin = isAdmin != 0
	if session.ExpiresAt, err = time.Parse(time.RFC3339, expiresAtStr); err != nil {
		return persistence.Session{}, fmt.Errorf("parse expires_at: %w", err)
	}
	if session.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Session{}, fmt.Errorf("parse created_at: %w", err)
	}
	if session.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Session{}, fmt.Errorf("parse updated_at: %w", err)
	}
	if revokedAt.Valid {
		parsed, err := time.Parse(time.RFC3339, revokedAt.String)
		if err != nil {
			return persistence.Session{}, fmt.Errorf("parse revoked_at: %w", err)
		}
		session.RevokedAt = &parsed
	}
	return session, nil
}

// RevokeSession marks the session as revoked.
func (r *SessionRepository) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	session, err := r.GetSession(ctx, token)
	if err != nil {
		return persistence.Session{}, err
	}

	query := `UPDATE sessions SET revoked_at = ?, updated_at = ? WHERE token = ?`
	stamp := revokedAt.UTC().Format(time.RFC3339)
	if _, err := r.pool.db.ExecContext(ctx, query, stamp, stamp, session.Token); err != nil {
		return persistence.Session{}, mapError(err)
	}

	session.RevokedAt = &revokedAt
	session.UpdatedAt = revokedAt
	return session, nil
}

// DeleteExpiredSessions prunes sessions whose expiry is at or before the
// reference instant.
func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	query := `DELETE FROM sessions WHERE expires_at <= ?`
	if _, err := r.pool.db.ExecContext(ctx, query, reference.UTC().Format(time.RFC3339)); err != nil {
		return mapError(err)
	}
	return nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
