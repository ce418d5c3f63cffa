package transaction

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

// EntryID identifies one application of a task within a transaction.
type EntryID = uuid.UUID

// JournalEvent represents an entry in the journal.
type JournalEvent struct {
	TransactionID uuid.UUID
	EntryID       EntryID
	Task          TaskName
	Type          EventType
	Attempts      int
	Err           error
	Time          time.Time
}

// String implements the fmt.Stringer interface for JournalEvent.
func (e *JournalEvent) String() string {
	s := fmt.Sprintf("%s %-14s %s", e.EntryID.String()[:8], e.Type, e.Task)
	if e.Attempts > 0 {
		s += fmt.Sprintf(" attempts=%d", e.Attempts)
	}
	if e.Err != nil {
		s += fmt.Sprintf(" err=%q", e.Err.Error())
	}
	return s
}

// EventType defines the types of events that can occur for a journal entry.
type EventType int

const (
	EventApplyStarted EventType = iota
	EventApplied
	EventApplyFailed
	EventRevertStarted
	EventReverted
	EventRevertFailed
)

// String returns the string representation of the EventType.
func (t EventType) String() string {
	switch t {
	case EventApplyStarted:
		return "apply_started"
	case EventApplied:
		return "applied"
	case EventApplyFailed:
		return "apply_failed"
	case EventRevertStarted:
		return "revert_started"
	case EventReverted:
		return "reverted"
	case EventRevertFailed:
		return "revert_failed"
	default:
		return fmt.Sprintf("unknown EventType: %d", t)
	}
}

// EntryStatus is the status of a journal entry after replaying its events.
type EntryStatus int

const (
	StatusNeverStarted EntryStatus = iota
	StatusApplying
	StatusApplied
	StatusApplyFailed
	StatusReverting
	StatusReverted
	StatusRevertFailed
)

var entryStatusNames = map[EntryStatus]string{
	StatusNeverStarted: "NeverStarted",
	StatusApplying:     "Applying",
	StatusApplied:      "Applied",
	StatusApplyFailed:  "ApplyFailed",
	StatusReverting:    "Reverting",
	StatusReverted:     "Reverted",
	StatusRevertFailed: "RevertFailed",
}

// String returns the string representation of the EntryStatus.
func (s EntryStatus) String() string {
	if name, ok := entryStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("EntryStatus(%d)", int(s))
}

// nextStatus returns the new status for an entry after recording the given event.
func (s EntryStatus) nextStatus(eventType EventType) (EntryStatus, error) {
	switch s {
	case StatusNeverStarted:
		if eventType == EventApplyStarted {
			return StatusApplying, nil
		}
	case StatusApplying:
		switch eventType {
		case EventApplied:
			return StatusApplied, nil
		case EventApplyFailed:
			return StatusApplyFailed, nil
		}
	case StatusApplied:
		if eventType == EventRevertStarted {
			return StatusReverting, nil
		}
	case StatusReverting:
		switch eventType {
		case EventReverted:
			return StatusReverted, nil
		case EventRevertFailed:
			return StatusRevertFailed, nil
		}
	}

	return s, fmt.Errorf("illegal event %s for entry status %s", eventType, s)
}

// MarshalJSON implements the json.Marshaler interface for EntryStatus.
func (s EntryStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for EntryStatus.
func (s *EntryStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	for status, name := range entryStatusNames {
		if name == str {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown entry status %q", str)
}

// Journal is the append-only event log of one or more transactions. It is
// safe for concurrent use; members of a group record events from their own
// goroutines.
type Journal struct {
	mu       sync.Mutex
	events   []*JournalEvent
	statuses *xsync.MapOf[EntryID, EntryStatus]
}

// NewJournal creates a new, empty Journal.
func NewJournal() *Journal {
	return &Journal{
		events:   make([]*JournalEvent, 0),
		statuses: xsync.NewMapOf[EntryID, EntryStatus](),
	}
}

// Record adds an event to the Journal. Events that are not a legal
// transition for their entry are rejected and not stored.
func (j *Journal) Record(event *JournalEvent) error {
	var transitionErr error
	j.statuses.Compute(event.EntryID, func(current EntryStatus, loaded bool) (EntryStatus, bool) {
		next, err := current.nextStatus(event.Type)
		if err != nil {
			transitionErr = fmt.Errorf("entry %s (%s): %w", event.EntryID, event.Task, err)
			return current, !loaded
		}
		return next, false
	})
	if transitionErr != nil {
		return transitionErr
	}

	if event.Time.IsZero() {
		event.Time = time.Now()
	}

	j.mu.Lock()
	j.events = append(j.events, event)
	j.mu.Unlock()
	return nil
}

// Status returns the current status of an entry.
func (j *Journal) Status(id EntryID) EntryStatus {
	status, ok := j.statuses.Load(id)
	if !ok {
		return StatusNeverStarted
	}
	return status
}

// Events returns a copy of the recorded events in recording order.
func (j *Journal) Events() []*JournalEvent {
	j.mu.Lock()
	defer j.mu.Unlock()

	return append([]*JournalEvent(nil), j.events...)
}

// JournalPretty is a helper for pretty-printing a Journal.
type JournalPretty struct {
	Journal *Journal
}

// String implements the fmt.Stringer interface for JournalPretty.
func (p *JournalPretty) String() string {
	events := p.Journal.Events()

	var sb strings.Builder
	sb.WriteString("JOURNAL:\n")
	sb.WriteString(fmt.Sprintf("events (%d total):\n", len(events)))
	sb.WriteString("\n")
	for i, event := range events {
		sb.WriteString(fmt.Sprintf("%03d %s\n", i+1, event.String()))
	}
	return sb.String()
}
