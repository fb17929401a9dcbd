package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidBatchSize = errors.New("batch size must be greater than 0")
	ErrInvalidTotal     = errors.New("total requests cannot be negative")
)

// Schedule describes how a run is split into batches.
type Schedule struct {
	Total     int
	BatchSize int
	// Pause between batches, skipped after the last one.
	Pause time.Duration
	// OnBatch is called after batch index (1-based) of size has drained.
	OnBatch func(index, size int)
}

// DispatchFunc performs request seq (0-based).
type DispatchFunc func(ctx context.Context, seq int)

// RunBatches invokes fn exactly s.Total times. Calls within a batch run
// concurrently; a batch starts only after the previous one has fully
// drained. It returns the number of batches run.
//
// A cancelled ctx stops scheduling further batches. The batch in flight
// keeps running on a context detached from the cancellation and is joined
// before returning; a cancel seen at any point is reported as ctx.Err().
func RunBatches(ctx context.Context, s Schedule, fn DispatchFunc) (int, error) {
	if s.BatchSize <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidBatchSize, s.BatchSize)
	}
	if s.Total < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidTotal, s.Total)
	}

	dispatchCtx := context.WithoutCancel(ctx)
	batches := 0
	for sent := 0; sent < s.Total; {
		if err := ctx.Err(); err != nil {
			return batches, err
		}

		size := min(s.BatchSize, s.Total-sent)
		var g errgroup.Group
		for i := 0; i < size; i++ {
			seq := sent + i
			g.Go(func() error {
				fn(dispatchCtx, seq)
				return nil
			})
		}
		g.Wait()

		sent += size
		batches++
		if s.OnBatch != nil {
			s.OnBatch(batches, size)
		}

		if s.Pause > 0 && sent < s.Total {
			if err := sleep(ctx, s.Pause); err != nil {
				return batches, err
			}
		}
	}
	return batches, ctx.Err()
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
