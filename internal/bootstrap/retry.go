// Package bootstrap holds the startup wiring shared by the binaries under cmd/.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/logger"

	"github.com/cenkalti/backoff/v4"
)

const (
	retryInitialInterval = 2 * time.Second
	retryMaxElapsed      = time.Minute
)

// WithRetry runs fn with exponential backoff until it succeeds, ctx ends or
// retryMaxElapsed passes. Wrap an error in backoff.Permanent to stop early.
func WithRetry(ctx context.Context, log *logger.Logger, name string, fn func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryInitialInterval
	bo.MaxElapsedTime = retryMaxElapsed

	attempt := 0
	op := func() error {
		attempt++
		err := fn()
		if err != nil {
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}
		return err
	}

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
