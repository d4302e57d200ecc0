// Package connectors binds workspace actions to their remote API calls and
// enforces the per-method rate-limit and retry contract in front of them.
package connectors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
)

// InvokerConfig shapes the rate-limit and retry behavior applied to every
// remote API method.
type InvokerConfig struct {
	// CallsPerSecond feeds the sliding-window limiter kept per method.
	CallsPerSecond float64
	Burst          int

	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func (c InvokerConfig) normalize() InvokerConfig {
	out := c
	if out.CallsPerSecond <= 0 {
		out.CallsPerSecond = 1
	}
	if out.Burst <= 0 {
		out.Burst = 1
	}
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = 3
	}
	if out.InitialBackoff <= 0 {
		out.InitialBackoff = 100 * time.Millisecond
	}
	if out.MaxBackoff <= 0 {
		out.MaxBackoff = 2 * time.Second
	}
	if out.MaxBackoff < out.InitialBackoff {
		out.MaxBackoff = out.InitialBackoff
	}
	return out
}

// Invoker serializes calls per remote API method: wait until the method's
// limiter grants capacity, then call, retrying retryable failures with
// exponential backoff plus jitter up to a bounded attempt count.
type Invoker struct {
	cfg InvokerConfig

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewInvoker(cfg InvokerConfig) *Invoker {
	return &Invoker{
		cfg:      cfg.normalize(),
		limiters: make(map[string]*rate.Limiter),
	}
}

func (inv *Invoker) Do(ctx context.Context, method string, call func(context.Context) (string, error)) (string, error) {
	limiter := inv.limiter(method)

	backoff := inv.cfg.InitialBackoff
	var lastErr error
	for attempt := 1; attempt <= inv.cfg.MaxAttempts; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait for %s: %w", method, err)
		}

		result, err := call(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryable(err) || attempt == inv.cfg.MaxAttempts {
			break
		}

		wait := withJitter(backoff)
		slog.Warn("connector_retry",
			"method", method,
			"attempt", attempt,
			"max_attempts", inv.cfg.MaxAttempts,
			"backoff_ms", float64(wait.Microseconds())/1000.0,
			"error", err,
		)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", lastErr
		case <-timer.C:
		}

		backoff *= 2
		if backoff > inv.cfg.MaxBackoff {
			backoff = inv.cfg.MaxBackoff
		}
	}
	return "", lastErr
}

func (inv *Invoker) limiter(method string) *rate.Limiter {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	limiter, ok := inv.limiters[method]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(inv.cfg.CallsPerSecond), inv.cfg.Burst)
		inv.limiters[method] = limiter
	}
	return limiter
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// withJitter spreads the backoff over ±50% so that concurrent retries
// against the same remote API do not align.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	half := int64(d) / 2
	return time.Duration(half + rand.Int63n(int64(d)))
}
