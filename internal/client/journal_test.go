package client

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := NewJournal(newTestStore(t))
	require.NoError(t, err)
	return j
}

func TestJournalEnqueueAssignsIdentityAndKey(t *testing.T) {
	j := newTestJournal(t)

	op, err := j.Enqueue(Operation{Type: OpTransition, TribeID: "t1", ProposalID: "p1", Action: "accept"})
	require.NoError(t, err)
	assert.NotEmpty(t, op.ID)
	assert.NotEmpty(t, op.IdempotencyKey)
	assert.Equal(t, OpStatusPending, op.Status)

	second, err := j.Enqueue(Operation{Type: OpTransition, TribeID: "t1", ProposalID: "p2", Action: "maybe"})
	require.NoError(t, err)
	assert.NotEqual(t, op.IdempotencyKey, second.IdempotencyKey)
}

func TestJournalSurvivesReload(t *testing.T) {
	store := newTestStore(t)
	j, err := NewJournal(store)
	require.NoError(t, err)
	op, err := j.Enqueue(Operation{Type: OpCreateItem, TribeID: "t1"})
	require.NoError(t, err)

	reloaded, err := NewJournal(store)
	require.NoError(t, err)
	ops := reloaded.All()
	require.Len(t, ops, 1)
	assert.Equal(t, op.ID, ops[0].ID)
	assert.Equal(t, op.IdempotencyKey, ops[0].IdempotencyKey)
}

func TestJournalDuePreservesOrder(t *testing.T) {
	j := newTestJournal(t)

	first, err := j.Enqueue(Operation{Type: OpCreateItem, TribeID: "t1"})
	require.NoError(t, err)
	second, err := j.Enqueue(Operation{Type: OpTransition, TribeID: "t1", ProposalID: "p1", Action: "accept"})
	require.NoError(t, err)

	due := j.Due(time.Now())
	require.Len(t, due, 2)
	assert.Equal(t, first.ID, due[0].ID)
	assert.Equal(t, second.ID, due[1].ID)
}

func TestJournalNotDueOpBlocksEverythingBehindIt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	j := newTestJournal(t)
	j.now = func() time.Time { return now }

	first, err := j.Enqueue(Operation{Type: OpTransition, TribeID: "t1", ProposalID: "p1", Action: "accept"})
	require.NoError(t, err)
	_, err = j.Enqueue(Operation{Type: OpTransition, TribeID: "t1", ProposalID: "p2", Action: "dismiss"})
	require.NoError(t, err)

	// First op fails transiently and gets pushed into the future; the
	// second must not run ahead of it.
	require.NoError(t, j.MarkFailed(first.ID, errors.New("conn refused"), false))

	due := j.Due(now.Add(500 * time.Millisecond))
	assert.Empty(t, due)

	due = j.Due(now.Add(2 * time.Second))
	require.Len(t, due, 2)
	assert.Equal(t, first.ID, due[0].ID)
}

func TestJournalBackoffSchedule(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	j := newTestJournal(t)
	j.now = func() time.Time { return now }

	op, err := j.Enqueue(Operation{Type: OpCreateItem, TribeID: "t1"})
	require.NoError(t, err)

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	for _, delay := range want {
		require.NoError(t, j.MarkFailed(op.ID, errors.New("timeout"), false))
		got := j.All()[0]
		assert.Equal(t, OpStatusPending, got.Status)
		assert.Equal(t, now.Add(delay), got.NextAttemptAt)
	}

	// Fifth failed attempt exhausts the budget.
	require.NoError(t, j.MarkFailed(op.ID, errors.New("timeout"), false))
	got := j.All()[0]
	assert.Equal(t, OpStatusFailed, got.Status)
	assert.Equal(t, maxAttempts, got.RetryCount)
}

func TestJournalDeterministicFailureIsTerminal(t *testing.T) {
	j := newTestJournal(t)
	op, err := j.Enqueue(Operation{Type: OpTransition, TribeID: "t1", ProposalID: "p1", Action: "accept"})
	require.NoError(t, err)

	require.NoError(t, j.MarkFailed(op.ID, errors.New("item suppressed"), true))

	got := j.All()[0]
	assert.Equal(t, OpStatusFailed, got.Status)
	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, "item suppressed", got.LastError)
	assert.Empty(t, j.Due(time.Now().Add(time.Hour)))
}

func TestJournalRecordsAPIErrorCode(t *testing.T) {
	j := newTestJournal(t)
	op, err := j.Enqueue(Operation{Type: OpTransition, TribeID: "t1", ProposalID: "p1", Action: "accept"})
	require.NoError(t, err)

	apiErr := &APIError{Status: 409, Code: "item_suppressed", Message: "item was deleted by the recipient"}
	require.NoError(t, j.MarkFailed(op.ID, apiErr, true))

	got := j.All()[0]
	assert.Equal(t, "item_suppressed", got.ErrorCode)
}

func TestJournalFailedOpsStayVisible(t *testing.T) {
	j := newTestJournal(t)
	op, err := j.Enqueue(Operation{Type: OpDeletePersonal, ItemID: "item-1"})
	require.NoError(t, err)
	require.NoError(t, j.MarkFailed(op.ID, errors.New("not found"), true))

	ops := j.All()
	require.Len(t, ops, 1)
	assert.Equal(t, OpStatusFailed, ops[0].Status)
}

func TestJournalMarkAppliedRemovesOp(t *testing.T) {
	j := newTestJournal(t)
	op, err := j.Enqueue(Operation{Type: OpCreateItem, TribeID: "t1"})
	require.NoError(t, err)

	require.NoError(t, j.MarkApplied(op.ID))
	assert.Empty(t, j.All())
	assert.ErrorIs(t, j.MarkApplied(op.ID), ErrOperationNotFound)
}

func TestJournalAbandonDropsOp(t *testing.T) {
	j := newTestJournal(t)
	op, err := j.Enqueue(Operation{Type: OpTransition, TribeID: "t1", ProposalID: "p1", Action: "dismiss"})
	require.NoError(t, err)
	require.NoError(t, j.MarkFailed(op.ID, errors.New("gone"), true))

	require.NoError(t, j.Abandon(op.ID))
	assert.Empty(t, j.All())
}

func TestJournalPurgeFailed(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	j := newTestJournal(t)
	j.now = func() time.Time { return now.Add(-48 * time.Hour) }

	old, err := j.Enqueue(Operation{Type: OpCreateItem, TribeID: "t1"})
	require.NoError(t, err)
	require.NoError(t, j.MarkFailed(old.ID, errors.New("bad"), true))

	j.now = func() time.Time { return now }
	fresh, err := j.Enqueue(Operation{Type: OpCreateItem, TribeID: "t1"})
	require.NoError(t, err)
	require.NoError(t, j.MarkFailed(fresh.ID, errors.New("bad"), true))
	pending, err := j.Enqueue(Operation{Type: OpCreateItem, TribeID: "t2"})
	require.NoError(t, err)

	purged, err := j.PurgeFailed(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	ops := j.All()
	require.Len(t, ops, 2)
	assert.Equal(t, fresh.ID, ops[0].ID)
	assert.Equal(t, pending.ID, ops[1].ID)
}
