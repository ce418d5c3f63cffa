package transaction

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournalRecordTransitions(t *testing.T) {
	j := NewJournal()
	txID := uuid.New()
	id := uuid.New()

	for _, eventType := range []EventType{EventApplyStarted, EventApplied, EventRevertStarted, EventReverted} {
		require.NoError(t, j.Record(&JournalEvent{TransactionID: txID, EntryID: id, Task: "t", Type: eventType}))
	}

	assert.Equal(t, StatusReverted, j.Status(id))
	assert.Len(t, j.Events(), 4)
	for _, e := range j.Events() {
		assert.False(t, e.Time.IsZero())
	}
}

func TestJournalRejectsIllegalTransitions(t *testing.T) {
	tests := []struct {
		name   string
		events []EventType
	}{
		{name: "applied before started", events: []EventType{EventApplied}},
		{name: "revert of failed apply", events: []EventType{EventApplyStarted, EventApplyFailed, EventRevertStarted}},
		{name: "double apply", events: []EventType{EventApplyStarted, EventApplied, EventApplyStarted}},
		{name: "reverted twice", events: []EventType{EventApplyStarted, EventApplied, EventRevertStarted, EventReverted, EventReverted}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := NewJournal()
			id := uuid.New()

			var err error
			for _, eventType := range tt.events {
				err = j.Record(&JournalEvent{EntryID: id, Task: "t", Type: eventType})
			}
			assert.ErrorContains(t, err, "illegal event")
			assert.Len(t, j.Events(), len(tt.events)-1)
		})
	}
}

func TestJournalUnknownEntry(t *testing.T) {
	j := NewJournal()
	id := uuid.New()

	require.Error(t, j.Record(&JournalEvent{EntryID: id, Type: EventReverted}))
	assert.Equal(t, StatusNeverStarted, j.Status(id))
}

func TestTransactionJournal(t *testing.T) {
	ctx := context.Background()
	j := NewJournal()
	tx := newTestTransaction(t, WithJournal(j), WithRetries(1))

	_, err := tx.Apply(ctx, &testTask{name: "ok", applyFailures: 1})
	require.NoError(t, err)
	_, err = tx.Apply(ctx, &testTask{name: "broken", applyFailures: -1})
	require.Error(t, err)
	_, err = tx.Revert(ctx)
	require.NoError(t, err)

	var got []string
	for _, e := range j.Events() {
		assert.Equal(t, tx.ID(), e.TransactionID)
		got = append(got, string(e.Task)+":"+e.Type.String())
	}
	assert.Equal(t, []string{
		"ok:apply_started",
		"ok:applied",
		"broken:apply_started",
		"broken:apply_failed",
		"ok:revert_started",
		"ok:reverted",
	}, got)

	events := j.Events()
	assert.Equal(t, 2, events[1].Attempts)
	assert.Equal(t, 2, events[3].Attempts)
	assert.Error(t, events[3].Err)
	assert.Equal(t, StatusReverted, j.Status(events[0].EntryID))
	assert.Equal(t, StatusApplyFailed, j.Status(events[2].EntryID))

	pretty := (&JournalPretty{Journal: j}).String()
	assert.Contains(t, pretty, "events (6 total)")
	assert.Contains(t, pretty, "apply_failed")
}

func TestEntryStatusJSON(t *testing.T) {
	data, err := json.Marshal(StatusRevertFailed)
	require.NoError(t, err)
	assert.JSONEq(t, `"RevertFailed"`, string(data))

	var decoded EntryStatus
	require.NoError(t, json.Unmarshal([]byte(`"Applied"`), &decoded))
	assert.Equal(t, StatusApplied, decoded)

	var bogus EntryStatus
	assert.Error(t, json.Unmarshal([]byte(`"Exploded"`), &bogus))
}
