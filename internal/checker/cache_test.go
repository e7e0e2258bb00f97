package checker_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazz-dev/healthd/internal/checker"
)

// countingChecker counts probes and can hold each one open for a while.
type countingChecker struct {
	probes atomic.Int32
	delay  time.Duration
	result checker.Result
}

func (c *countingChecker) Probe(ctx context.Context, req checker.Request) checker.Result {
	c.probes.Add(1)
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
		}
	}
	return c.result
}

func cacheRequest(service string) checker.Request {
	return checker.Request{Service: service, Port: 8080, Protocol: checker.ProtocolTCP}
}

func TestCache_CoalescesConcurrentProbes(t *testing.T) {
	cc := &countingChecker{
		delay:  100 * time.Millisecond,
		result: checker.Result{Code: 200, Reason: "ok"},
	}
	cache := checker.NewCache(cc, time.Minute, 16, time.Second)

	const callers = 25
	var wg sync.WaitGroup
	results := make([]checker.Result, callers)
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = cache.Probe(context.Background(), cacheRequest("api"))
		}(i)
	}
	wg.Wait()

	if got := cc.probes.Load(); got != 1 {
		t.Errorf("expected exactly one underlying probe for %d callers, got %d", callers, got)
	}
	for i, r := range results {
		if r != results[0] {
			t.Errorf("caller %d got %+v, want the shared result %+v", i, r, results[0])
		}
	}
}

func TestCache_ServesFreshEntryWithoutProbe(t *testing.T) {
	cc := &countingChecker{result: checker.Result{Code: 200, Reason: "ok"}}
	cache := checker.NewCache(cc, time.Minute, 16, time.Second)

	first := cache.Probe(context.Background(), cacheRequest("api"))
	second := cache.Probe(context.Background(), cacheRequest("api"))

	if cc.probes.Load() != 1 {
		t.Errorf("expected one probe, got %d", cc.probes.Load())
	}
	if first != second {
		t.Errorf("expected the stored result, got %+v then %+v", first, second)
	}
}

func TestCache_ExpiredEntryTriggersNewProbe(t *testing.T) {
	cc := &countingChecker{result: checker.Result{Code: 200, Reason: "ok"}}
	cache := checker.NewCache(cc, 30*time.Millisecond, 16, time.Second)

	cache.Probe(context.Background(), cacheRequest("api"))
	time.Sleep(60 * time.Millisecond)
	cache.Probe(context.Background(), cacheRequest("api"))

	if cc.probes.Load() != 2 {
		t.Errorf("expected a fresh probe after TTL, got %d probes", cc.probes.Load())
	}
}

func TestCache_DistinctKeysProbeIndependently(t *testing.T) {
	cc := &countingChecker{result: checker.Result{Code: 200, Reason: "ok"}}
	cache := checker.NewCache(cc, time.Minute, 16, time.Second)

	cache.Probe(context.Background(), cacheRequest("api"))
	cache.Probe(context.Background(), cacheRequest("db"))

	if cc.probes.Load() != 2 {
		t.Errorf("expected one probe per key, got %d", cc.probes.Load())
	}
	if cache.Len() != 2 {
		t.Errorf("expected two cache entries, got %d", cache.Len())
	}
}

func TestCache_CallerCancellationDoesNotCancelSharedProbe(t *testing.T) {
	cc := &countingChecker{
		delay:  100 * time.Millisecond,
		result: checker.Result{Code: 200, Reason: "ok"},
	}
	cache := checker.NewCache(cc, time.Minute, 16, time.Second)

	// The first caller cancels immediately; the probe it started must still
	// run to completion under its own deadline.
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan checker.Result, 1)
	go func() {
		done <- cache.Probe(ctx, cacheRequest("api"))
	}()
	cancel()

	result := <-done
	if result.Code != 200 {
		t.Errorf("expected the probe to finish with 200, got %d: %s", result.Code, result.Reason)
	}
}
