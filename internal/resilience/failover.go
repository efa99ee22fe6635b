package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mvonrenteln/FlowScribe-sub009/pkg/provider/llm"
)

// ErrAllFailed is returned when every backend in a [Failover] fails or
// sits behind an open breaker.
var ErrAllFailed = errors.New("resilience: all providers failed")

// backend pairs a named [llm.Provider] with its dedicated breaker.
type backend struct {
	name     string
	provider llm.Provider
	breaker  *Breaker
}

// Failover implements [llm.Provider] across a primary and zero or more
// fallback backends, tried in registration order. A backend whose breaker
// is open is skipped without a call.
type Failover struct {
	backends []backend
	cfg      BreakerConfig
}

var _ llm.Provider = (*Failover)(nil)

// NewFailover creates a [Failover] with primary as the preferred backend.
// cfg configures the per-backend breakers; the Name field is overridden
// per backend.
func NewFailover(primaryName string, primary llm.Provider, cfg BreakerConfig) *Failover {
	f := &Failover{cfg: cfg}
	f.AddFallback(primaryName, primary)
	return f
}

// AddFallback appends another backend. Fallbacks are tried after the
// primary, in the order added.
func (f *Failover) AddFallback(name string, provider llm.Provider) {
	cfg := f.cfg
	cfg.Name = name
	f.backends = append(f.backends, backend{
		name:     name,
		provider: provider,
		breaker:  NewBreaker(cfg),
	})
}

// Complete sends the request to the first healthy backend.
func (f *Failover) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return execute(f, func(p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}

// CountTokens delegates to the first backend whose counter succeeds. Token
// counting is a local estimate that makes no network call, so it bypasses
// the breakers in both directions: an open breaker does not block it, and
// its failures never open the circuit that gates completion traffic.
func (f *Failover) CountTokens(messages []llm.Message) (int, error) {
	var lastErr error
	for i := range f.backends {
		be := &f.backends[i]
		n, err := be.provider.CountTokens(messages)
		if err == nil {
			return n, nil
		}
		lastErr = err
		slog.Warn("token count failed, trying next", "provider", be.name, "err", err)
	}
	return 0, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}

// execute tries fn against each backend until one succeeds. A
// package-level function because Go has no method-level type parameters.
func execute[R any](f *Failover, fn func(llm.Provider) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range f.backends {
		be := &f.backends[i]
		var result R
		err := be.breaker.Do(func() error {
			var innerErr error
			result, innerErr = fn(be.provider)
			return innerErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrBreakerOpen) {
			slog.Debug("skipping backend, breaker open", "provider", be.name)
		} else {
			slog.Warn("backend failed, trying next", "provider", be.name, "err", err)
		}
	}
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
