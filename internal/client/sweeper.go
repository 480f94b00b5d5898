package client

import (
	"context"
	"time"

	"helpem-go/pkg/logger"
)

const defaultSweepInterval = time.Second

// Submitter delivers one journaled operation to the server.
type Submitter interface {
	Submit(ctx context.Context, op Operation) error
}

// Sweeper drains the journal in the background. It is the journal's only
// writer besides user actions: each tick it submits every due operation in
// order, applying the journal's backoff and retry budget on failure.
type Sweeper struct {
	journal  *Journal
	api      Submitter
	log      logger.Logger
	interval time.Duration
}

func NewSweeper(journal *Journal, api Submitter, log logger.Logger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Sweeper{journal: journal, api: api, log: log, interval: interval}
}

// Run blocks until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	for _, op := range s.journal.Due(time.Now()) {
		if ctx.Err() != nil {
			return
		}

		err := s.api.Submit(ctx, op)
		if err == nil {
			if err := s.journal.MarkApplied(op.ID); err != nil {
				s.log.Error("sweeper: mark applied failed", "op_id", op.ID, "err", err)
			}
			continue
		}

		deterministic := IsDeterministic(err)
		if deterministic {
			s.log.BusinessError("sweeper: operation rejected", err, "op_id", op.ID, "type", op.Type)
		} else {
			s.log.Warn("sweeper: transient failure, will retry", "op_id", op.ID, "type", op.Type, "err", err)
		}
		if err := s.journal.MarkFailed(op.ID, err, deterministic); err != nil {
			s.log.Error("sweeper: mark failed failed", "op_id", op.ID, "err", err)
		}

		// A failed delivery stops the tick: later operations may depend on
		// this one, and order is part of the contract.
		return
	}
}
