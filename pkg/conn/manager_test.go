package conn

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germanamz/tibber-mcp/pkg/tibber"
)

func TestAcquireMemoizes(t *testing.T) {
	dials := 0
	m := NewManager(func(_ context.Context) (*tibber.Client, error) {
		dials++
		return tibber.New("token"), nil
	})

	first, err := m.Acquire(context.Background())
	require.NoError(t, err)

	second, err := m.Acquire(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, dials)
}

func TestReleaseForcesRedial(t *testing.T) {
	dials := 0
	m := NewManager(func(_ context.Context) (*tibber.Client, error) {
		dials++
		return tibber.New("token"), nil
	})

	first, err := m.Acquire(context.Background())
	require.NoError(t, err)

	m.Release()

	second, err := m.Acquire(context.Background())
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, 2, dials)
}

func TestAcquireFailureIsNotMemoized(t *testing.T) {
	dialErr := errors.New("no route")
	fail := true
	m := NewManager(func(_ context.Context) (*tibber.Client, error) {
		if fail {
			return nil, dialErr
		}
		return tibber.New("token"), nil
	})

	_, err := m.Acquire(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, dialErr)

	fail = false
	client, err := m.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestReleaseWithoutAcquireIsNoop(t *testing.T) {
	m := NewManager(func(_ context.Context) (*tibber.Client, error) {
		return tibber.New("token"), nil
	})

	m.Release() // must not panic
}
