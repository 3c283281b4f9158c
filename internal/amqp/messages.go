package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"orcamento/internal/core"
)

type EventType string

const (
	EventEntriesAdded   EventType = "entries_added"
	EventEntriesDeleted EventType = "entries_deleted"
	EventAlerts         EventType = "alerts"
)

// LedgerEvent announces a change to the ledger, or the alerts produced by a
// reconciliation pass. Receivers refetch the ledger; the event carries ids
// and the snapshot version, never row positions.
type LedgerEvent struct {
	Type      EventType    `json:"type"`
	IDs       []string     `json:"ids,omitempty"`
	GroupID   string       `json:"group_id,omitempty"`
	Version   string       `json:"version,omitempty"`
	Alerts    []core.Alert `json:"alerts,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewLedgerEvent creates an event of the given type stamped with the current time.
func NewLedgerEvent(t EventType) *LedgerEvent {
	return &LedgerEvent{Type: t, Timestamp: time.Now()}
}

func (t EventType) Valid() bool {
	switch t {
	case EventEntriesAdded, EventEntriesDeleted, EventAlerts:
		return true
	}
	return false
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes an event and rejects unknown types.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if !e.Type.Valid() {
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
	return &e, nil
}
