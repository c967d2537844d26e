package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetry(t *testing.T) {
	errTransient := errors.New("ORA-12541: no listener")
	errFatal := errors.New("ORA-01017: invalid username/password")
	retryable := func(err error) bool { return !errors.Is(err, errFatal) }

	tests := []struct {
		name      string
		attempts  int
		failures  []error
		wantCalls int
		wantErr   error
	}{
		{name: "first attempt succeeds", attempts: 3, wantCalls: 1},
		{name: "succeeds after transient failure", attempts: 3, failures: []error{errTransient}, wantCalls: 2},
		{name: "exhausts attempts", attempts: 2, failures: []error{errTransient, errTransient, errTransient}, wantCalls: 2, wantErr: errTransient},
		{name: "stops on non retryable error", attempts: 5, failures: []error{errFatal}, wantCalls: 1, wantErr: errFatal},
		{name: "zero attempts still calls once", attempts: 0, failures: []error{errTransient}, wantCalls: 1, wantErr: errTransient},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			err := Retry(tc.attempts, time.Millisecond, func() error {
				defer func() { calls++ }()
				if calls < len(tc.failures) {
					return tc.failures[calls]
				}
				return nil
			}, retryable)
			require.Equal(t, tc.wantCalls, calls)
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestRetryContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := RetryContext(ctx, 5, time.Hour, func(context.Context) error {
		calls++
		return errors.New("still down")
	}, nil)
	require.Error(t, err)
	require.Equal(t, 1, calls)
}
