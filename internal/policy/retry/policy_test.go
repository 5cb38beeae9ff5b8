package retry

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/goldwatch/internal/goldprice"
)

func newTestPolicy(maxRetries int) (*ExponentialPolicy, *[]time.Duration) {
	p := NewExponentialPolicy(Config{MaxRetries: maxRetries, BaseDelay: 10 * time.Millisecond, MaxDelay: 40 * time.Millisecond})
	var waits []time.Duration
	p.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return p, &waits
}

func TestShouldRetry(t *testing.T) {
	t.Parallel()

	p, _ := newTestPolicy(3)
	tests := []struct {
		name    string
		err     error
		attempt int
		want    bool
	}{
		{name: "nil", err: nil, attempt: 1, want: false},
		{name: "503", err: &goldprice.StatusError{StatusCode: 503}, attempt: 1, want: true},
		{name: "429", err: &goldprice.StatusError{StatusCode: 429}, attempt: 1, want: true},
		{name: "404", err: &goldprice.StatusError{StatusCode: 404}, attempt: 1, want: false},
		{name: "net error", err: &net.OpError{Op: "dial", Err: errors.New("refused")}, attempt: 2, want: true},
		{name: "canceled", err: context.Canceled, attempt: 1, want: false},
		{name: "exhausted", err: &goldprice.StatusError{StatusCode: 500}, attempt: 4, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, p.ShouldRetry(tt.err, tt.attempt))
		})
	}
}

func TestBackoffBounded(t *testing.T) {
	t.Parallel()

	p, _ := newTestPolicy(5)
	for attempt := 1; attempt <= 6; attempt++ {
		d := p.Backoff(attempt)
		require.GreaterOrEqual(t, d, time.Duration(0))
		require.LessOrEqual(t, d, 40*time.Millisecond)
	}
	require.GreaterOrEqual(t, p.Backoff(1), 5*time.Millisecond)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	p, waits := newTestPolicy(3)
	calls := 0
	retried := 0
	err := p.Do(context.Background(), func(context.Context, int) error {
		calls++
		if calls < 3 {
			return &goldprice.StatusError{StatusCode: 502}
		}
		return nil
	}, func(int, time.Duration, error) { retried++ })

	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Equal(t, 2, retried)
	require.Len(t, *waits, 2)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	t.Parallel()

	p, waits := newTestPolicy(3)
	calls := 0
	err := p.Do(context.Background(), func(context.Context, int) error {
		calls++
		return &goldprice.StatusError{StatusCode: 403}
	}, nil)

	require.Error(t, err)
	require.Equal(t, 1, calls)
	require.Empty(t, *waits)
}

func TestDoExhaustsAttempts(t *testing.T) {
	t.Parallel()

	p, _ := newTestPolicy(2)
	calls := 0
	err := p.Do(context.Background(), func(context.Context, int) error {
		calls++
		return &goldprice.StatusError{StatusCode: 500}
	}, nil)

	var statusErr *goldprice.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, 3, calls)
	require.Equal(t, 3, p.MaxAttempts())
}

func TestDoStopsWhenContextCanceledDuringWait(t *testing.T) {
	t.Parallel()

	p := NewExponentialPolicy(Config{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := p.Do(ctx, func(context.Context, int) error {
		calls++
		cancel()
		return &goldprice.StatusError{StatusCode: 500}
	}, nil)

	require.Error(t, err)
	require.Equal(t, 1, calls)
}
