package usecase

import (
	"time"

	"travel-booking/internal/data/entity"
)

// RetryPolicy bounds an operation that can lose to a concurrent writer.
// The backoff is a plain blocking sleep.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	Sleep       func(time.Duration)
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: 50 * time.Millisecond, Sleep: time.Sleep}
}

// Do calls fn until it reports done, returns an error, or the attempts run out.
// Running out yields entity.ErrConcurrencyExhausted.
func (p RetryPolicy) Do(fn func(attempt int) (done bool, err error)) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		done, err := fn(attempt)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if attempt < attempts && p.Backoff > 0 {
			sleep(p.Backoff)
		}
	}
	return entity.ErrConcurrencyExhausted
}
