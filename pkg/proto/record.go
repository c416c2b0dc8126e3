package proto

import (
	"encoding/json"
	"fmt"
	"time"
)

// RecordType identifies the kind of audit record written to the event log.
type RecordType string

const (
	RecordTurn     RecordType = "TURN"     // inbound turn and its terminal response
	RecordResume   RecordType = "RESUME"   // decision applied against an interrupt
	RecordUIEvent  RecordType = "UIEVENT"  // fire-and-forget UI event emission
	RecordShutdown RecordType = "SHUTDOWN" // orderly shutdown marker
)

// Record is the envelope written to the JSONL audit trail. One record per
// turn, resume, or UI event emission.
type Record struct {
	ID        string         `json:"id"`
	Type      RecordType     `json:"type"`
	SessionID string         `json:"session_id"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// NewRecord creates an audit record with a fresh turn id and UTC timestamp.
func NewRecord(recordType RecordType, sessionID string) *Record {
	return &Record{
		ID:        GenerateTurnID(),
		Type:      recordType,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Payload:   make(map[string]any),
	}
}

// SetPayload stores a key/value pair on the record.
func (r *Record) SetPayload(key string, value any) {
	if r.Payload == nil {
		r.Payload = make(map[string]any)
	}
	r.Payload[key] = value
}

// GetPayload retrieves a payload value by key.
func (r *Record) GetPayload(key string) (any, bool) {
	if r.Payload == nil {
		return nil, false
	}
	value, ok := r.Payload[key]
	return value, ok
}

// ToJSON serializes the record for the JSONL log.
func (r *Record) ToJSON() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	return data, nil
}

// RecordFromJSON parses one JSONL line back into a record.
func RecordFromJSON(data []byte) (*Record, error) {
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &record, nil
}
