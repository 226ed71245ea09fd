package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type RateLimiter interface {
	Wait(ctx context.Context) error
}

// PageDelay spaces out consecutive page loads by a random delay between min
// and max. The limiter enforces the minimum spacing and a random extra pause
// of up to max-min follows. The first Wait returns immediately.
type PageDelay struct {
	limiter  *rate.Limiter
	minDelay time.Duration
	maxDelay time.Duration
	waited   bool
	mu       sync.Mutex
	rand     *rand.Rand
}

func NewPageDelay(minDelay, maxDelay time.Duration) *PageDelay {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &PageDelay{
		limiter:  rate.NewLimiter(rate.Every(minDelay), 1),
		minDelay: minDelay,
		maxDelay: maxDelay,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *PageDelay) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}

	if !r.waited {
		r.waited = true
		return nil
	}

	if jitter := r.calculateJitter(); jitter > 0 {
		timer := time.NewTimer(jitter)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return nil
}

func (r *PageDelay) calculateJitter() time.Duration {
	if r.minDelay == r.maxDelay {
		return 0
	}

	delta := r.maxDelay - r.minDelay
	return time.Duration(r.rand.Int63n(int64(delta)))
}

// NoDelay never waits.
type NoDelay struct{}

func (NoDelay) Wait(ctx context.Context) error {
	return ctx.Err()
}
