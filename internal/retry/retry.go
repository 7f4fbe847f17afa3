package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/bstardust/geomap/internal/logger"
)

// Config defines retry behavior for operations that might fail transiently
type Config struct {
	// MaxRetries is the maximum number of retries before giving up
	MaxRetries int

	// InitialBackoff is the duration to wait before the first retry
	InitialBackoff time.Duration

	// MaxBackoff is the maximum duration to wait between retries
	MaxBackoff time.Duration

	// BackoffFactor is the factor by which to increase backoff after each retry
	BackoffFactor float64

	// RetryableErrors lists error codes or message fragments that are retried
	RetryableErrors map[string]bool
}

// Default returns the configuration used for object storage calls.
func Default() Config {
	return Config{
		MaxRetries:      5,
		InitialBackoff:  1 * time.Second,
		MaxBackoff:      1 * time.Minute,
		BackoffFactor:   2.0,
		RetryableErrors: storageErrors(),
	}
}

// ForHTTP returns a short configuration for public web services, which are
// rate limited and should not be hammered.
func ForHTTP(maxRetries int) Config {
	return Config{
		MaxRetries:      maxRetries,
		InitialBackoff:  1 * time.Second,
		MaxBackoff:      10 * time.Second,
		BackoffFactor:   2.0,
		RetryableErrors: httpErrors(),
	}
}

// storageErrors returns S3 error codes that should be retried
func storageErrors() map[string]bool {
	return map[string]bool{
		"RequestTimeout":       true,
		"RequestTimeTooSkewed": true,
		"InternalError":        true,
		"SlowDown":             true,
		"OperationAborted":     true,
		"ServiceUnavailable":   true,
		"RequestLimitExceeded": true,
	}
}

// httpErrors returns fragments seen on throttled or truncated HTTP responses
func httpErrors() map[string]bool {
	return map[string]bool{
		"429":                          true,
		"502":                          true,
		"503":                          true,
		"Too Many Requests":            true,
		"unexpected end of JSON input": true,
		"EOF":                          true,
	}
}

// IsRetryable determines if an error should be retried based on its type or message
func (c Config) IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	for code := range c.RetryableErrors {
		if strings.Contains(err.Error(), code) {
			return true
		}
	}

	lowerErr := strings.ToLower(err.Error())
	return strings.Contains(lowerErr, "timeout") ||
		strings.Contains(lowerErr, "connection") ||
		strings.Contains(lowerErr, "reset") ||
		strings.Contains(lowerErr, "broken pipe") ||
		strings.Contains(lowerErr, "network") ||
		strings.Contains(lowerErr, "unavailable")
}

// Do runs fn until it succeeds, fails with a non-retryable error, runs out of
// attempts or ctx is done.
func Do(ctx context.Context, operation string, fn func() error, config Config) error {
	var err error
	var attempt int

	for attempt = 0; attempt <= config.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return fmt.Errorf("%s canceled: %w", operation, ctx.Err())
		}

		if attempt > 0 {
			logger.Debug("Retry attempt %d/%d for %s", attempt, config.MaxRetries, operation)
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				logger.Info("Successfully completed %s after %d retries", operation, attempt)
			}
			return nil
		}

		if !config.IsRetryable(err) {
			logger.Debug("Non-retryable error for %s: %v", operation, err)
			return err
		}

		if attempt == config.MaxRetries {
			break
		}

		backoff := backoffDuration(attempt, config)
		logger.Debug("Backing off for %v before retrying %s: %v", backoff, operation, err)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return fmt.Errorf("%s canceled during retry: %w", operation, ctx.Err())
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, attempt+1, err)
}

// backoffDuration calculates the backoff duration for a retry attempt
func backoffDuration(attempt int, config Config) time.Duration {
	backoff := float64(config.InitialBackoff) * math.Pow(config.BackoffFactor, float64(attempt))

	// ±20% jitter
	jitter := (rand.Float64() * 0.4) - 0.2
	backoff = backoff * (1 + jitter)

	if backoff > float64(config.MaxBackoff) {
		backoff = float64(config.MaxBackoff)
	}

	return time.Duration(backoff)
}
