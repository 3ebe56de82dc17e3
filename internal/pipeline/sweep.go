package pipeline

import (
	"context"
	"time"

	"niena/internal/errors"
)

const defaultSweepBatch = 200

// StaleSweeper fails resumes and tailored resumes stuck in PENDING or PROCESSING,
// which happens when queued work is lost to a crash or a forced shutdown.
// The store refunds the charged credits in the same transaction.
type StaleSweeper struct {
	stores     map[string]StaleStore
	staleAfter time.Duration
	batchSize  int
	now        func() time.Time
	logger     *errors.Logger
}

// NewStaleSweeper creates a sweeper. staleAfter must exceed the workflow timeout
// plus the compensation window, or a live workflow could be swept.
func NewStaleSweeper(resumes, tailored StaleStore, staleAfter time.Duration, batchSize int, logger *errors.Logger) *StaleSweeper {
	stores := map[string]StaleStore{}
	if resumes != nil {
		stores[WorkflowResume] = resumes
	}
	if tailored != nil {
		stores[WorkflowTailor] = tailored
	}
	if batchSize <= 0 {
		batchSize = defaultSweepBatch
	}
	return &StaleSweeper{
		stores:     stores,
		staleAfter: staleAfter,
		batchSize:  batchSize,
		now:        time.Now,
		logger:     logger,
	}
}

// SweepStale fails every stale record, one batch at a time, and returns how many it failed
func (s *StaleSweeper) SweepStale(ctx context.Context) (int, error) {
	before := s.now().UTC().Add(-s.staleAfter)
	total := 0
	for workflow, store := range s.stores {
		for {
			runs, err := store.FailStale(ctx, before, s.batchSize)
			if err != nil {
				return total, err
			}
			for _, run := range runs {
				s.logger.Warn("Failed stale workflow run",
					"workflow", workflow,
					"id", run.ID,
					"user_id", run.UserID,
					"refunded", run.Credits)
			}
			total += len(runs)
			if len(runs) < s.batchSize {
				break
			}
			if err := ctx.Err(); err != nil {
				return total, err
			}
		}
	}
	return total, nil
}
