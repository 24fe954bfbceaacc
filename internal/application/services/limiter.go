package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/flow-84/crypto-portfolio-v2/internal/domain/marketdata"
)

// CallGate enforces a minimum spacing between batch calls to the price feed
// and wraps each executed call with bounded backoff on throttling responses.
// Triggers arriving inside the spacing window are skipped, not queued.
type CallGate struct {
	mu       sync.Mutex
	lastCall time.Time

	interval   time.Duration
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	// overridable in tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewCallGate creates a new call gate. interval is the minimum spacing
// between executed calls; maxRetries and retryDelay drive the backoff on
// rate-limited responses.
func NewCallGate(interval time.Duration, maxRetries int, retryDelay time.Duration, logger *zap.Logger) *CallGate {
	return &CallGate{
		interval:   interval,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		logger:     logger,
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

// Attempt executes call only if the minimum interval since the previous
// executed call has elapsed; otherwise it returns (false, nil) and the caller
// treats the skip as a normal outcome. The last-call timestamp is advanced
// before the call runs, so overlapping triggers during a slow call are also
// skipped.
func (g *CallGate) Attempt(ctx context.Context, call func(ctx context.Context) error) (bool, error) {
	g.mu.Lock()
	now := g.now()
	if now.Sub(g.lastCall) < g.interval {
		g.mu.Unlock()
		return false, nil
	}
	g.lastCall = now
	g.mu.Unlock()

	return true, g.callWithRetry(ctx, call)
}

// callWithRetry retries only on rate-limit signals, doubling the delay each
// time. Any other failure, or retry exhaustion, surfaces immediately.
func (g *CallGate) callWithRetry(ctx context.Context, call func(ctx context.Context) error) error {
	delay := g.retryDelay

	var err error
	for i := 0; i <= g.maxRetries; i++ {
		err = call(ctx)
		if err == nil || !errors.Is(err, marketdata.ErrRateLimited) {
			return err
		}

		if i < g.maxRetries {
			g.logger.Warn("Feed rate limited, backing off",
				zap.Int("attempt", i+1),
				zap.Duration("delay", delay),
			)
			if serr := g.sleep(ctx, delay); serr != nil {
				return serr
			}
			delay *= 2
		}
	}

	return err
}

// sleepCtx sleeps for d or until the context is cancelled
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
