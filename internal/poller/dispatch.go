package poller

import (
	"context"
	"time"
)

// sleepFunc suspends for d, returning early with the context error on cancel.
// Injected so tests can record pacing instead of waiting it out.
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// dispatchQueue runs items strictly sequentially with a fixed gap between
// consecutive items. The gap keeps system-notification bursts rate-limited;
// item failures are the item's own problem and never stop the queue.
type dispatchQueue struct {
	gap   time.Duration
	sleep sleepFunc
}

func newDispatchQueue(gap time.Duration, sleep sleepFunc) *dispatchQueue {
	if sleep == nil {
		sleep = sleepWithContext
	}
	return &dispatchQueue{gap: gap, sleep: sleep}
}

// run invokes fn for indexes 0..count-1 in order, pausing for the configured
// gap before every item after the first. A canceled context abandons the
// remainder of the queue.
func (q *dispatchQueue) run(ctx context.Context, count int, fn func(ctx context.Context, i int)) error {
	for i := 0; i < count; i++ {
		if i > 0 && q.gap > 0 {
			if err := q.sleep(ctx, q.gap); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(ctx, i)
	}
	return nil
}
