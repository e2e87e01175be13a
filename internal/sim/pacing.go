package sim

import (
	"context"
	"math"
	"time"
)

// Pacer computes the adaptive backoff delay and suspends the run for it. The
// wait is the sole blocking operation in the system: higher scale or entropy
// lengthens it, throttling the loop in proportion to its internal risk.
type Pacer struct {
	rng   Rand
	sleep func(ctx context.Context, d time.Duration) error
}

func NewPacer(rng Rand) *Pacer {
	return &Pacer{rng: rng, sleep: sleepContext}
}

// Pace blocks for (base + jitter) * scale * (1 + entropy) and returns the
// rounded delay in milliseconds for logging. A canceled context cuts the wait
// short and surfaces the context error.
func (p *Pacer) Pace(ctx context.Context, cfg *Config, s *State) (int64, error) {
	jitter := time.Duration(p.rng.Float64() * float64(cfg.Jitter))
	delay := time.Duration(float64(cfg.BaseDelay+jitter) * cfg.Scale * (1 + s.Entropy))
	ms := int64(math.Round(float64(delay) / float64(time.Millisecond)))
	if err := p.sleep(ctx, delay); err != nil {
		return ms, err
	}
	return ms, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
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
