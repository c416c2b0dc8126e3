package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"concierge/pkg/proto"
)

const timeFormat = time.RFC3339Nano

// Session identifies one continuous conversation. The domain binding is set
// once a request is routed and may change only while no interrupt is pending.
type Session struct {
	ID        string
	Domain    proto.Domain // empty until first successful classification
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EnsureSession creates the session row if it does not exist and returns it.
func (s *Store) EnsureSession(sessionID string) (*Session, error) {
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, domain, created_at, updated_at)
		 VALUES (?, NULL, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		sessionID, now.Format(timeFormat), now.Format(timeFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure session %s: %w", sessionID, err)
	}
	return s.GetSession(sessionID)
}

// GetSession fetches a session by id.
func (s *Store) GetSession(sessionID string) (*Session, error) {
	var (
		session      Session
		domain       sql.NullString
		created, upd string
	)
	err := s.db.QueryRow(
		`SELECT id, domain, created_at, updated_at FROM sessions WHERE id = ?`,
		sessionID,
	).Scan(&session.ID, &domain, &created, &upd)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session %s not found", sessionID)
		}
		return nil, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}

	if domain.Valid {
		session.Domain = proto.Domain(domain.String)
	}
	if session.CreatedAt, err = time.Parse(timeFormat, created); err != nil {
		return nil, fmt.Errorf("failed to parse session created_at: %w", err)
	}
	if session.UpdatedAt, err = time.Parse(timeFormat, upd); err != nil {
		return nil, fmt.Errorf("failed to parse session updated_at: %w", err)
	}
	return &session, nil
}

// BindDomain records the session's current domain binding.
func (s *Store) BindDomain(sessionID string, domain proto.Domain) error {
	now := time.Now().UTC().Format(timeFormat)
	result, err := s.db.Exec(
		`UPDATE sessions SET domain = ?, updated_at = ? WHERE id = ?`,
		string(domain), now, sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to bind domain for session %s: %w", sessionID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check domain binding for session %s: %w", sessionID, err)
	}
	if rows == 0 {
		return fmt.Errorf("session %s not found", sessionID)
	}
	return nil
}

// AppendMessage appends one turn to the session's message history. The
// history is append-only; the per-session lock above the store guarantees a
// single writer per turn.
func (s *Store) AppendMessage(sessionID, role, content string) error {
	now := time.Now().UTC().Format(timeFormat)
	_, err := s.db.Exec(
		`INSERT INTO messages (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, role, content, now,
	)
	if err != nil {
		return fmt.Errorf("failed to append message for session %s: %w", sessionID, err)
	}
	return nil
}

// GetMessages returns the session's message history in append order.
func (s *Store) GetMessages(sessionID string) ([]proto.ContextMessage, error) {
	rows, err := s.db.Query(
		`SELECT role, content FROM messages WHERE session_id = ? ORDER BY seq ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages for session %s: %w", sessionID, err)
	}
	defer func() { _ = rows.Close() }()

	var messages []proto.ContextMessage
	for rows.Next() {
		var msg proto.ContextMessage
		if err := rows.Scan(&msg.Role, &msg.Content); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}

// ResetSession removes the session and all dependent rows (history and
// interrupts cascade). A reset session accepts fresh requests as new.
func (s *Store) ResetSession(sessionID string) error {
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to reset session %s: %w", sessionID, err)
	}
	return nil
}
