package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpem-go/pkg/logger"
)

type fakeSubmitter struct {
	submitted []Operation
	errs      map[string]error
}

func (f *fakeSubmitter) Submit(_ context.Context, op Operation) error {
	f.submitted = append(f.submitted, op)
	return f.errs[op.ProposalID]
}

func quietLogger() logger.Logger {
	return logger.New(io.Discard, slog.LevelError, "json")
}

func TestSweepDrainsInOrder(t *testing.T) {
	j := newTestJournal(t)
	first, err := j.Enqueue(Operation{Type: OpTransition, TribeID: "t1", ProposalID: "p1", Action: "accept"})
	require.NoError(t, err)
	second, err := j.Enqueue(Operation{Type: OpTransition, TribeID: "t1", ProposalID: "p2", Action: "dismiss"})
	require.NoError(t, err)

	api := &fakeSubmitter{errs: map[string]error{}}
	s := NewSweeper(j, api, quietLogger(), time.Minute)
	s.sweep(context.Background())

	require.Len(t, api.submitted, 2)
	assert.Equal(t, first.ID, api.submitted[0].ID)
	assert.Equal(t, second.ID, api.submitted[1].ID)
	assert.Empty(t, j.All())
}

func TestSweepStopsAtTransientFailure(t *testing.T) {
	j := newTestJournal(t)
	_, err := j.Enqueue(Operation{Type: OpTransition, TribeID: "t1", ProposalID: "p1", Action: "accept"})
	require.NoError(t, err)
	_, err = j.Enqueue(Operation{Type: OpTransition, TribeID: "t1", ProposalID: "p2", Action: "maybe"})
	require.NoError(t, err)

	api := &fakeSubmitter{errs: map[string]error{
		"p1": &APIError{Status: http.StatusServiceUnavailable, Code: "unavailable"},
	}}
	s := NewSweeper(j, api, quietLogger(), time.Minute)
	s.sweep(context.Background())

	// The second op never went out; both stay journaled.
	require.Len(t, api.submitted, 1)
	ops := j.All()
	require.Len(t, ops, 2)
	assert.Equal(t, OpStatusPending, ops[0].Status)
	assert.Equal(t, 1, ops[0].RetryCount)
	assert.Equal(t, 0, ops[1].RetryCount)
}

func TestSweepMarksDeterministicFailureTerminal(t *testing.T) {
	j := newTestJournal(t)
	_, err := j.Enqueue(Operation{Type: OpTransition, TribeID: "t1", ProposalID: "p1", Action: "accept"})
	require.NoError(t, err)

	api := &fakeSubmitter{errs: map[string]error{
		"p1": &APIError{Status: http.StatusConflict, Code: "item_suppressed", Message: "item was deleted by the recipient"},
	}}
	s := NewSweeper(j, api, quietLogger(), time.Minute)
	s.sweep(context.Background())
	s.sweep(context.Background())

	// No second attempt is ever made.
	require.Len(t, api.submitted, 1)
	ops := j.All()
	require.Len(t, ops, 1)
	assert.Equal(t, OpStatusFailed, ops[0].Status)
	assert.Contains(t, ops[0].LastError, "item_suppressed")
}
