package db

import (
	"context"
	"fmt"
	"time"

	"github.com/yigit/tuitiontrack/internal/pkg/apperrors"
	"github.com/yigit/tuitiontrack/internal/pkg/dberrors"
	"github.com/yigit/tuitiontrack/internal/pkg/logger"
)

// RetryPolicy bounds the retries of a write that hit lock contention.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
}

// DefaultRetryPolicy is three attempts starting at 50ms.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, BaseDelay: 50 * time.Millisecond}

// Do runs fn until it succeeds, returns a non-transient error, or the attempt
// budget is spent. Delays double after each transient failure. Exhausted retries
// are reported as apperrors.ErrTransient wrapping the last error.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.BaseDelay

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil || !dberrors.IsTransientError(err) {
			return err
		}

		logger.Warn().
			Err(err).
			Str("op", op).
			Int("attempt", attempt).
			Msg("Transient database error")

		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return fmt.Errorf("%s: %w: %w", op, apperrors.ErrTransient, err)
}
