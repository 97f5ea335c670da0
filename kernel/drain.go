package kernel

import (
	"context"
	"time"

	"github.com/joeycumines/go-microbatch"

	"github.com/tock/tock-sub011/klog"
)

// overloadNotice records one occurrence of a per-tick budget (interrupt or
// deferred-call) being exceeded.
type overloadNotice struct {
	kind EventKind
}

// overloadCoalescer batches repeated budget-exceeded notices within a short
// flush window so a sustained burst produces one log line with a count
// instead of one line per tick — the same batching discipline the
// teacher's OnOverload hook assumes a caller applies before logging,
// expressed here through a reusable batching library rather than a
// hand-rolled timer.
type overloadCoalescer struct {
	batcher *microbatch.Batcher[overloadNotice]
	logger  klog.Logger
}

func newOverloadCoalescer(logger klog.Logger) *overloadCoalescer {
	c := &overloadCoalescer{logger: logger}
	c.batcher = microbatch.NewBatcher[overloadNotice](&microbatch.BatcherConfig{
		MaxSize:        32,
		FlushInterval:  100 * time.Millisecond,
		MaxConcurrency: 1,
	}, c.flush)
	return c
}

func (c *overloadCoalescer) flush(_ context.Context, notices []overloadNotice) error {
	counts := make(map[EventKind]int, 2)
	for _, n := range notices {
		counts[n.kind]++
	}
	for kind, n := range counts {
		c.logger.Log(klog.Entry{
			Level:   klog.LevelWarn,
			Message: "tick budget exceeded",
			Fields:  []klog.Field{klog.F("kind", kind.String()), klog.F("occurrences", n)},
		})
	}
	return nil
}

// Notify records one budget-exceeded occurrence for kind.
func (c *overloadCoalescer) Notify(kind EventKind) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, _ = c.batcher.Submit(ctx, overloadNotice{kind: kind})
}

// Close flushes any pending notices and releases the coalescer's
// background goroutine.
func (c *overloadCoalescer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return c.batcher.Shutdown(ctx)
}
