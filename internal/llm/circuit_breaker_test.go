package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerPassesThroughWhenClosed(t *testing.T) {
	cb := NewCircuitBreaker("test")
	ctx := context.Background()

	result, err := cb.Execute(ctx, func() (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, "closed", cb.State())
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreakerWithConfig("test", CircuitBreakerConfig{MaxFailures: 2})
	ctx := context.Background()
	boom := errors.New("provider down")

	for i := 0; i < 2; i++ {
		_, err := cb.Execute(ctx, func() (interface{}, error) {
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)
	}

	assert.Equal(t, "open", cb.State())

	_, err := cb.Execute(ctx, func() (interface{}, error) {
		t.Fatal("function must not run while the circuit is open")
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreakerRecoversAfterTimeout(t *testing.T) {
	cb := NewCircuitBreakerWithConfig("test", CircuitBreakerConfig{
		MaxFailures:          1,
		Timeout:              50 * time.Millisecond,
		HalfOpenMaxSuccesses: 1,
	})
	ctx := context.Background()

	_, err := cb.Execute(ctx, func() (interface{}, error) {
		return nil, errors.New("provider down")
	})
	require.Error(t, err)
	require.Equal(t, "open", cb.State())

	time.Sleep(60 * time.Millisecond)

	result, err := cb.Execute(ctx, func() (interface{}, error) {
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", result)
	assert.Equal(t, "closed", cb.State())
}

func TestCircuitBreakerHonorsCancelledContext(t *testing.T) {
	cb := NewCircuitBreaker("test")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cb.Execute(ctx, func() (interface{}, error) {
		return "unreachable", nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "closed", cb.State(), "a cancelled caller is not a provider failure")
}
