package fulfillment

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// RetryConfig — повторы шагов отката остатков при временных сбоях хранилища.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig возвращает конфигурацию по умолчанию.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  20 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
	}
}

// WithCompensationRetry задаёт политику повторов отката.
func WithCompensationRetry(cfg RetryConfig) Option {
	return func(c *core) {
		if cfg.MaxAttempts > 0 {
			c.retry = cfg
		}
	}
}

// withRetry повторяет fn с экспоненциальной задержкой. Бизнес-ошибки не повторяются.
func (c *core) withRetry(ctx context.Context, fields log.Fields, fn func(context.Context) error) error {
	var lastErr error
	delay := c.retry.InitialDelay

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			if attempt > 1 {
				c.logger.WithFields(fields).WithField("attempt", attempt).Info("stock step succeeded after retry")
			}
			return nil
		}
		if !retryable(lastErr) || attempt == c.retry.MaxAttempts {
			break
		}

		c.logger.WithFields(fields).WithError(lastErr).WithFields(log.Fields{
			"attempt": attempt,
			"delay":   delay,
		}).Warn("stock step failed, retrying")

		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		delay = time.Duration(float64(delay) * c.retry.BackoffFactor)
		if delay > c.retry.MaxDelay {
			delay = c.retry.MaxDelay
		}
	}
	return lastErr
}

// retryable: отсутствующий товар или нехватка остатка повтором не лечатся.
func retryable(err error) bool {
	switch {
	case errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrInsufficientStock),
		domain.IsValidation(err):
		return false
	}
	return true
}
