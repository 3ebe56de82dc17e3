package ai

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain", err: errors.New("bad request"), want: false},
		{name: "cancelled", err: context.Canceled, want: false},
		{name: "network", err: &net.OpError{Op: "dial", Err: errors.New("refused")}, want: true},
		{name: "rate limited", err: &googleapi.Error{Code: http.StatusTooManyRequests}, want: true},
		{name: "unavailable", err: &googleapi.Error{Code: http.StatusServiceUnavailable}, want: true},
		{name: "unauthorized", err: &googleapi.Error{Code: http.StatusUnauthorized}, want: false},
		{name: "wrapped", err: errors.Join(errors.New("ctx"), &googleapi.Error{Code: http.StatusBadGateway}), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableError(tt.err))
		})
	}
}

func TestBackoffDelay(t *testing.T) {
	d := backoffDelay(1)
	assert.GreaterOrEqual(t, d, time.Second)
	assert.Less(t, d, 1100*time.Millisecond)

	assert.Equal(t, maxBackoff, backoffDelay(10))
}

func TestExecuteWithRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	_, err := executeWithRetry(context.Background(), testLogger(), "parse", 3, func() (int, error) {
		calls++
		return 0, errors.New("invalid input")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Contains(t, err.Error(), "operation 'parse' failed")
}

func TestExecuteWithRetryRecovers(t *testing.T) {
	calls := 0
	v, err := executeWithRetry(context.Background(), testLogger(), "parse", 2, func() (string, error) {
		calls++
		if calls == 1 {
			return "", &googleapi.Error{Code: http.StatusServiceUnavailable}
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 2, calls)
}

func TestExecuteWithRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := executeWithRetry(ctx, testLogger(), "parse", 5, func() (int, error) {
		calls++
		cancel()
		return 0, &googleapi.Error{Code: http.StatusTooManyRequests}
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
