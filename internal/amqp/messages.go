package amqp

import (
	"encoding/json"
	"time"
)

// RecomputeMessage asks the worker to rebuild derived reports.
// It carries only the store revision that triggered it, the worker
// re-reads everything else from the store.
type RecomputeMessage struct {
	Revision  int64     `json:"revision"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecomputeMessage creates a recompute message for the given revision
func NewRecomputeMessage(revision int64) *RecomputeMessage {
	return &RecomputeMessage{
		Revision:  revision,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecomputeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecomputeMessageFromJSON creates a message from JSON bytes
func RecomputeMessageFromJSON(data []byte) (*RecomputeMessage, error) {
	var msg RecomputeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
