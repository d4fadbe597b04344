package clients

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrierShouldRetry(t *testing.T) {
	r := NewRetrier(nil)

	assert.True(t, r.ShouldRetry(http.StatusTooManyRequests, nil))
	assert.True(t, r.ShouldRetry(http.StatusServiceUnavailable, nil))
	assert.True(t, r.ShouldRetry(0, errors.New("connection reset")), "transport errors always retry")

	assert.False(t, r.ShouldRetry(http.StatusNotFound, nil))
	assert.False(t, r.ShouldRetry(http.StatusUnauthorized, nil))
	assert.False(t, r.ShouldRetry(http.StatusOK, nil))
}

func TestRetrierBackoff(t *testing.T) {
	r := NewRetrier(&RetryConfig{
		InitialBackoff: time.Second,
		MaxBackoff:     10 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         0,
	})

	assert.Equal(t, time.Second, r.Backoff(0, 0))
	assert.Equal(t, 2*time.Second, r.Backoff(1, 0))
	assert.Equal(t, 4*time.Second, r.Backoff(2, 0))

	t.Run("caps at max backoff", func(t *testing.T) {
		assert.Equal(t, 10*time.Second, r.Backoff(8, 0))
	})

	t.Run("retry-after overrides the computed wait", func(t *testing.T) {
		assert.Equal(t, 30*time.Second, r.Backoff(0, 30*time.Second))
	})
}

func TestParseRetryAfter(t *testing.T) {
	t.Run("seconds form", func(t *testing.T) {
		resp := &http.Response{Header: http.Header{"Retry-After": []string{"15"}}}
		assert.Equal(t, 15*time.Second, ParseRetryAfter(resp))
	})

	t.Run("missing header", func(t *testing.T) {
		resp := &http.Response{Header: http.Header{}}
		assert.Equal(t, time.Duration(0), ParseRetryAfter(resp))
	})

	t.Run("nil response", func(t *testing.T) {
		assert.Equal(t, time.Duration(0), ParseRetryAfter(nil))
	})
}

func fastRetrier(maxRetries int) *Retrier {
	return NewRetrier(&RetryConfig{
		MaxRetries:     maxRetries,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  2.0,
		RetryableCodes: []int{http.StatusServiceUnavailable},
	})
}

func stubResponse(status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader("")),
	}
}

func TestDoHTTPRetriesUntilSuccess(t *testing.T) {
	attempts := 0
	resp, err := fastRetrier(3).DoHTTP(context.Background(), "fetch products", func(ctx context.Context) (*http.Response, error) {
		attempts++
		if attempts < 3 {
			return stubResponse(http.StatusServiceUnavailable), nil
		}
		return stubResponse(http.StatusOK), nil
	})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, attempts)
}

func TestDoHTTPNonRetryableStatusReturnsResponse(t *testing.T) {
	attempts := 0
	resp, err := fastRetrier(3).DoHTTP(context.Background(), "fetch job", func(ctx context.Context) (*http.Response, error) {
		attempts++
		return stubResponse(http.StatusNotFound), nil
	})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 1, attempts, "non-retryable status is returned to the caller")
}

func TestDoHTTPExhaustsRetries(t *testing.T) {
	attempts := 0
	_, err := fastRetrier(2).DoHTTP(context.Background(), "update job", func(ctx context.Context) (*http.Response, error) {
		attempts++
		return stubResponse(http.StatusServiceUnavailable), nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, 3, attempts, "initial attempt plus two retries")
}

func TestDoHTTPHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fastRetrier(3).DoHTTP(ctx, "fetch products", func(ctx context.Context) (*http.Response, error) {
		return stubResponse(http.StatusServiceUnavailable), nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
