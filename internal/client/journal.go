package client

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// OpType is the kind of mutation a journaled operation performs when it
// reaches the server.
type OpType string

const (
	OpCreateItem     OpType = "create_item"
	OpTransition     OpType = "transition"
	OpDeletePersonal OpType = "delete_personal"
)

type OpStatus string

const (
	OpStatusPending OpStatus = "pending"
	// OpStatusFailed is terminal: the retry budget is spent or the server
	// rejected the operation deterministically. Failed operations stay in
	// the journal, visible to the user, until purged or abandoned.
	OpStatusFailed OpStatus = "failed"
)

const maxAttempts = 5

// Operation is one queued mutation. The idempotency key is minted when the
// operation is enqueued and reused verbatim on every retry, which is what
// makes blind retrying safe.
type Operation struct {
	ID             string          `json:"id"`
	Type           OpType          `json:"type"`
	TribeID        string          `json:"tribe_id,omitempty"`
	ProposalID     string          `json:"proposal_id,omitempty"`
	ItemID         string          `json:"item_id,omitempty"`
	Action         string          `json:"action,omitempty"`
	Body           json.RawMessage `json:"body,omitempty"`
	IdempotencyKey string          `json:"idempotency_key"`
	Status         OpStatus        `json:"status"`
	RetryCount     int             `json:"retry_count"`
	LastError      string          `json:"last_error,omitempty"`
	ErrorCode      string          `json:"error_code,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	NextAttemptAt  time.Time       `json:"next_attempt_at"`
}

var ErrOperationNotFound = errors.New("journal: operation not found")

// Journal is the client's durable queue of unacknowledged mutations. A single
// mutex serializes every access; there is exactly one writer (the sweeper)
// plus UI readers, and correctness beats throughput here.
type Journal struct {
	mu    sync.Mutex
	store *SecureFileStore
	ops   []Operation
	now   func() time.Time
}

func NewJournal(store *SecureFileStore) (*Journal, error) {
	j := &Journal{store: store, now: time.Now}
	if err := store.Load(&j.ops); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Journal) Enqueue(op Operation) (Operation, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	op.ID = uuid.NewString()
	op.IdempotencyKey = uuid.NewString()
	op.Status = OpStatusPending
	op.RetryCount = 0
	op.CreatedAt = j.now().UTC()
	op.NextAttemptAt = op.CreatedAt

	j.ops = append(j.ops, op)
	if err := j.persist(); err != nil {
		j.ops = j.ops[:len(j.ops)-1]
		return Operation{}, err
	}
	return op, nil
}

// Due returns pending operations whose next attempt time has passed, oldest
// first. Order matters: a transition queued after a create must not overtake
// it.
func (j *Journal) Due(now time.Time) []Operation {
	j.mu.Lock()
	defer j.mu.Unlock()

	var due []Operation
	for _, op := range j.ops {
		if op.Status != OpStatusPending {
			continue
		}
		if op.NextAttemptAt.After(now) {
			// Operations are stored in enqueue order; a not-yet-due op
			// blocks everything behind it to preserve ordering.
			break
		}
		due = append(due, op)
	}
	return due
}

// All returns a snapshot of every journaled operation, for display.
func (j *Journal) All() []Operation {
	j.mu.Lock()
	defer j.mu.Unlock()
	snapshot := make([]Operation, len(j.ops))
	copy(snapshot, j.ops)
	return snapshot
}

// MarkApplied removes a confirmed operation from the journal.
func (j *Journal) MarkApplied(id string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	for i, op := range j.ops {
		if op.ID != id {
			continue
		}
		j.ops = append(j.ops[:i], j.ops[i+1:]...)
		return j.persist()
	}
	return ErrOperationNotFound
}

// MarkFailed records an attempt that did not succeed. Deterministic failures
// and exhausted retry budgets move the operation to the terminal failed
// state; transient ones schedule the next attempt with exponential backoff.
func (j *Journal) MarkFailed(id string, attemptErr error, deterministic bool) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	for i := range j.ops {
		op := &j.ops[i]
		if op.ID != id {
			continue
		}
		op.RetryCount++
		if attemptErr != nil {
			op.LastError = attemptErr.Error()
			var apiErr *APIError
			if errors.As(attemptErr, &apiErr) {
				op.ErrorCode = apiErr.Code
			}
		}
		if deterministic || op.RetryCount >= maxAttempts {
			op.Status = OpStatusFailed
		} else {
			op.NextAttemptAt = j.now().UTC().Add(backoff(op.RetryCount))
		}
		return j.persist()
	}
	return ErrOperationNotFound
}

// Abandon drops an operation that was never acknowledged by the server. Only
// the user triggers this, typically from the failed-operations view.
func (j *Journal) Abandon(id string) error {
	return j.MarkApplied(id)
}

// PurgeFailed removes terminal-failed operations older than the cutoff and
// reports how many were dropped.
func (j *Journal) PurgeFailed(olderThan time.Time) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	kept := j.ops[:0]
	purged := 0
	for _, op := range j.ops {
		if op.Status == OpStatusFailed && op.CreatedAt.Before(olderThan) {
			purged++
			continue
		}
		kept = append(kept, op)
	}
	j.ops = kept
	if purged == 0 {
		return 0, nil
	}
	return purged, j.persist()
}

func (j *Journal) persist() error {
	return j.store.Save(j.ops)
}

// backoff is 2^(attempt-1) seconds: 1, 2, 4, 8, 16.
func backoff(attempt int) time.Duration {
	return time.Duration(1<<(attempt-1)) * time.Second
}
