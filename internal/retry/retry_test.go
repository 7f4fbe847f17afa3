package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastConfig(retries int) Config {
	cfg := ForHTTP(retries)
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	return cfg
}

func TestIsRetryable(t *testing.T) {
	cfg := Default()

	assert.False(t, cfg.IsRetryable(nil))
	assert.False(t, cfg.IsRetryable(context.Canceled))
	assert.False(t, cfg.IsRetryable(errors.New("access denied")))
	assert.True(t, cfg.IsRetryable(errors.New("SlowDown: please reduce your request rate")))
	assert.True(t, cfg.IsRetryable(errors.New("dial tcp: i/o timeout")))

	http := ForHTTP(1)
	assert.True(t, http.IsRetryable(errors.New("unexpected end of JSON input")))
	assert.True(t, http.IsRetryable(errors.New("status 429 Too Many Requests")))
}

func TestDo_RetriesTransient(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "lookup", func() error {
		calls++
		if calls < 3 {
			return errors.New("connection reset by peer")
		}
		return nil
	}, fastConfig(5))

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnPermanent(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "lookup", func() error {
		calls++
		return errors.New("invalid query")
	}, fastConfig(5))

	assert.EqualError(t, err, "invalid query")
	assert.Equal(t, 1, calls)
}

func TestDo_GivesUp(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "lookup", func() error {
		calls++
		return errors.New("service unavailable")
	}, fastConfig(2))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "lookup failed after 3 attempts")
	assert.Equal(t, 3, calls)
}

func TestDo_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, "lookup", func() error { return nil }, fastConfig(2))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoffDuration_Capped(t *testing.T) {
	cfg := Default()
	assert.LessOrEqual(t, backoffDuration(20, cfg), cfg.MaxBackoff)
	assert.Greater(t, backoffDuration(0, cfg), time.Duration(0))
}
