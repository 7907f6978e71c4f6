package fetcher_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/spclone-go/internal/domain"
	"github.com/quantmind-br/spclone-go/internal/fetcher"
)

func TestRetrier_SingleAttemptByDefault(t *testing.T) {
	r := fetcher.NewRetrier(fetcher.RetrierOptions{})
	attempts := 0

	err := r.Retry(context.Background(), func() error {
		attempts++
		return &domain.RetryableError{Err: errors.New("transient")}
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetrier_RetriesRetryableErrors(t *testing.T) {
	r := fetcher.NewRetrier(fetcher.RetrierOptions{
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	})
	attempts := 0

	err := r.Retry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return &domain.RetryableError{Err: errors.New("transient")}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetrier_PermanentErrorAborts(t *testing.T) {
	r := fetcher.NewRetrier(fetcher.RetrierOptions{
		MaxRetries:      5,
		InitialInterval: time.Millisecond,
	})
	attempts := 0
	permanent := domain.NewFetchError("u", 404, domain.ErrNotFound)

	err := r.Retry(context.Background(), func() error {
		attempts++
		return permanent
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 1, attempts)
}

func TestRetrier_ContextCancellation(t *testing.T) {
	r := fetcher.NewRetrier(fetcher.RetrierOptions{
		MaxRetries:      10,
		InitialInterval: 50 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := r.Retry(ctx, func() error {
		attempts++
		return &domain.RetryableError{Err: errors.New("transient")}
	})

	require.Error(t, err)
	assert.LessOrEqual(t, attempts, 2)
}

func TestShouldRetryStatus(t *testing.T) {
	assert.True(t, fetcher.ShouldRetryStatus(502))
	assert.True(t, fetcher.ShouldRetryStatus(503))
	assert.True(t, fetcher.ShouldRetryStatus(504))
	assert.False(t, fetcher.ShouldRetryStatus(200))
	assert.False(t, fetcher.ShouldRetryStatus(404))
	assert.False(t, fetcher.ShouldRetryStatus(500))
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 30*time.Second, fetcher.ParseRetryAfter("30"))
	assert.Equal(t, time.Duration(0), fetcher.ParseRetryAfter(""))
	assert.Equal(t, time.Duration(0), fetcher.ParseRetryAfter("soon"))
	assert.Equal(t, time.Duration(0), fetcher.ParseRetryAfter("-5"))
}

func TestParseRateLimitReset(t *testing.T) {
	assert.Equal(t, time.Unix(1700000000, 0), fetcher.ParseRateLimitReset("1700000000"))
	assert.True(t, fetcher.ParseRateLimitReset("").IsZero())
	assert.True(t, fetcher.ParseRateLimitReset("later").IsZero())
}
