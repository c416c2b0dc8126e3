package ledger

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"concierge/pkg/proto"
)

// ErrPendingInterruptExists reports an attempt to create a second pending
// interrupt for a session that already has one.
var ErrPendingInterruptExists = errors.New("session already has a pending interrupt")

// CreateInterrupt persists a new pending interrupt. Fails with
// ErrPendingInterruptExists if the session already has one pending; the
// partial unique index enforces this even when a caller bypasses the
// supervisor.
func (s *Store) CreateInterrupt(interrupt *proto.Interrupt) error {
	actionJSON, err := json.Marshal(interrupt.Action)
	if err != nil {
		return fmt.Errorf("failed to marshal action request: %w", err)
	}
	tokenJSON, err := interrupt.Token.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode resume token: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO interrupts (id, session_id, action_json, token_json, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		interrupt.ID, interrupt.SessionID, string(actionJSON), string(tokenJSON),
		string(proto.InterruptPending), interrupt.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrPendingInterruptExists
		}
		return fmt.Errorf("failed to create interrupt %s: %w", interrupt.ID, err)
	}

	s.logger.Info("interrupt %s created for session %s (tool %s)",
		interrupt.ID, interrupt.SessionID, interrupt.Action.Name)
	return nil
}

// GetInterrupt fetches an interrupt by id. An unknown id yields a
// StaleInterruptError so callers treat it the same as an already-resolved one.
func (s *Store) GetInterrupt(interruptID string) (*proto.Interrupt, error) {
	var (
		interrupt  proto.Interrupt
		actionJSON string
		tokenJSON  string
		status     string
		created    string
	)
	err := s.db.QueryRow(
		`SELECT id, session_id, action_json, token_json, status, created_at
		 FROM interrupts WHERE id = ?`,
		interruptID,
	).Scan(&interrupt.ID, &interrupt.SessionID, &actionJSON, &tokenJSON, &status, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &proto.StaleInterruptError{InterruptID: interruptID}
		}
		return nil, fmt.Errorf("failed to get interrupt %s: %w", interruptID, err)
	}

	if err := json.Unmarshal([]byte(actionJSON), &interrupt.Action); err != nil {
		return nil, fmt.Errorf("failed to unmarshal action request: %w", err)
	}
	token, err := proto.DecodeResumeToken([]byte(tokenJSON))
	if err != nil {
		return nil, err
	}
	interrupt.Token = *token
	interrupt.Status = proto.InterruptStatus(status)
	if interrupt.CreatedAt, err = time.Parse(timeFormat, created); err != nil {
		return nil, fmt.Errorf("failed to parse interrupt created_at: %w", err)
	}
	return &interrupt, nil
}

// PendingInterrupt returns the session's pending interrupt, or nil if none.
func (s *Store) PendingInterrupt(sessionID string) (*proto.Interrupt, error) {
	var interruptID string
	err := s.db.QueryRow(
		`SELECT id FROM interrupts WHERE session_id = ? AND status = ?`,
		sessionID, string(proto.InterruptPending),
	).Scan(&interruptID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query pending interrupt for session %s: %w", sessionID, err)
	}
	return s.GetInterrupt(interruptID)
}

// ResolveInterrupt transitions pending to resolved exactly once via
// compare-and-swap. A decision against an interrupt that is not pending
// yields StaleInterruptError; it is never silently re-applied.
func (s *Store) ResolveInterrupt(interruptID string) error {
	return s.casStatus(interruptID, proto.InterruptResolved)
}

// AbandonInterrupt transitions pending to abandoned (explicit cancellation or
// TTL expiry). Terminal like resolved: the session accepts fresh requests
// afterward.
func (s *Store) AbandonInterrupt(interruptID string) error {
	return s.casStatus(interruptID, proto.InterruptAbandoned)
}

func (s *Store) casStatus(interruptID string, target proto.InterruptStatus) error {
	now := time.Now().UTC().Format(timeFormat)
	result, err := s.db.Exec(
		`UPDATE interrupts SET status = ?, resolved_at = ?
		 WHERE id = ? AND status = ?`,
		string(target), now, interruptID, string(proto.InterruptPending),
	)
	if err != nil {
		return fmt.Errorf("failed to update interrupt %s: %w", interruptID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check interrupt update %s: %w", interruptID, err)
	}
	if rows == 1 {
		s.logger.Info("interrupt %s: pending -> %s", interruptID, target)
		return nil
	}

	// CAS failed: report the actual status (or unknown).
	var status string
	err = s.db.QueryRow(`SELECT status FROM interrupts WHERE id = ?`, interruptID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &proto.StaleInterruptError{InterruptID: interruptID}
		}
		return fmt.Errorf("failed to read interrupt %s status: %w", interruptID, err)
	}
	return &proto.StaleInterruptError{InterruptID: interruptID, Status: proto.InterruptStatus(status)}
}

// CountPending returns the number of interrupts awaiting a decision across
// all sessions.
func (s *Store) CountPending() (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM interrupts WHERE status = ?`,
		string(proto.InterruptPending),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending interrupts: %w", err)
	}
	return count, nil
}

// ExpireStale abandons pending interrupts older than the TTL. Returns the
// number expired.
func (s *Store) ExpireStale(ttl time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-ttl).Format(timeFormat)
	now := time.Now().UTC().Format(timeFormat)

	result, err := s.db.Exec(
		`UPDATE interrupts SET status = ?, resolved_at = ?
		 WHERE status = ? AND created_at < ?`,
		string(proto.InterruptAbandoned), now, string(proto.InterruptPending), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale interrupts: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count expired interrupts: %w", err)
	}
	if rows > 0 {
		s.logger.Info("expired %d stale interrupt(s)", rows)
	}
	return int(rows), nil
}
