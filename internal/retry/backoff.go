package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Backoff retries an operation with exponentially growing, jittered delays.
type Backoff struct {
	Start       time.Duration
	Max         time.Duration
	MaxAttempts int
}

// Default mirrors the bot's boot-time retry policy.
func Default() Backoff {
	return Backoff{Start: time.Second, Max: 60 * time.Second, MaxAttempts: 5}
}

// Do runs op until it succeeds, attempts are exhausted, or ctx ends. The
// delay doubles each attempt with ±20% jitter, capped at Max. The last
// error is returned.
func (b Backoff) Do(ctx context.Context, log *zap.Logger, name string, op func() error) error {
	delay := b.Start
	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if attempt >= b.MaxAttempts {
			log.Error("max retries exceeded", zap.String("operation", name), zap.Error(err))
			return err
		}

		jitter := 0.8 + 0.4*rand.Float64()
		delay = time.Duration(math.Min(float64(delay)*2*jitter, float64(b.Max)))

		log.Warn("operation failed, retrying",
			zap.String("operation", name),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
