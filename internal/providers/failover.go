package providers

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Failover tries each provider in order until one answers. Providers that report
// quota exhaustion are skipped until their cooldown elapses.
type Failover struct {
	providers []NamedLLMProvider
	cooldown  time.Duration
	now       func() time.Time

	mu            sync.Mutex
	disabledUntil map[int]time.Time
}

func NewFailover(providers []NamedLLMProvider, cooldown time.Duration) *Failover {
	if cooldown <= 0 {
		cooldown = 15 * time.Minute
	}
	return &Failover{
		providers:     providers,
		cooldown:      cooldown,
		now:           time.Now,
		disabledUntil: map[int]time.Time{},
	}
}

func (f *Failover) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	var (
		lastErr  error
		lastInfo ProviderInfo
	)
	for idx, p := range f.providers {
		if f.disabled(idx) {
			continue
		}
		resp, info, err := p.Provider.Generate(ctx, req)
		if err == nil {
			return resp, info, nil
		}
		lastErr, lastInfo = err, info
		switch ClassifyError(err) {
		case ErrorQuota, ErrorAuth:
			f.disable(idx, f.cooldown)
		case ErrorContext:
			return GenerateResponse{}, info, err
		}
		if ctx.Err() != nil {
			return GenerateResponse{}, info, ctx.Err()
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("all llm providers exhausted")
	}
	return GenerateResponse{}, lastInfo, lastErr
}

func (f *Failover) disabled(idx int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	until, ok := f.disabledUntil[idx]
	return ok && f.now().Before(until)
}

func (f *Failover) disable(idx int, d time.Duration) {
	f.mu.Lock()
	f.disabledUntil[idx] = f.now().Add(d)
	f.mu.Unlock()
}
