package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"virtual-courtroom/internal/domain"
	"virtual-courtroom/internal/infra/config"
)

var _ domain.LLMProvider = (*LimitedProvider)(nil)

// LimitedProvider caps outbound oracle traffic with a request-rate token
// bucket and a bound on in-flight calls, shared by every agent.
type LimitedProvider struct {
	inner   domain.LLMProvider
	limiter *rate.Limiter // nil = unlimited rate
	slots   chan struct{} // nil = unlimited concurrency
}

// NewLimitedProvider wraps inner. Zero limits disable the corresponding check.
func NewLimitedProvider(inner domain.LLMProvider, cfg config.LimitsConfig) *LimitedProvider {
	p := &LimitedProvider{inner: inner}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	if cfg.MaxConcurrent > 0 {
		p.slots = make(chan struct{}, cfg.MaxConcurrent)
	}
	return p
}

// Chat waits for a rate token and a free slot, then delegates. Waiting is
// bounded by ctx.
func (p *LimitedProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: waiting for %s: %w", domain.ErrRateLimit, p.inner.Name(), err)
		}
	}
	if p.slots != nil {
		select {
		case p.slots <- struct{}{}:
			defer func() { <-p.slots }()
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: waiting for a free %s slot: %w", domain.ErrTimeout, p.inner.Name(), ctx.Err())
		}
	}
	return p.inner.Chat(ctx, req)
}

// Name implements domain.LLMProvider.
func (p *LimitedProvider) Name() string { return p.inner.Name() }

// InFlight reports how many calls currently hold a slot.
func (p *LimitedProvider) InFlight() int {
	return len(p.slots)
}
