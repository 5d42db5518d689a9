package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germanamz/tibber-mcp/pkg/tibber"
)

// fakeSource implements LiveSource. onStart runs synchronously inside
// StartLive after the handler is captured, so tests can push messages
// before, during, or after the bridge begins waiting.
type fakeSource struct {
	capable  bool
	startErr error
	onStart  func(fn tibber.LiveHandler)

	mu     sync.Mutex
	starts int
	stops  int
	fn     tibber.LiveHandler
}

func (f *fakeSource) HasRealTime() bool { return f.capable }

func (f *fakeSource) StartLive(_ context.Context, fn tibber.LiveHandler) error {
	f.mu.Lock()
	f.starts++
	f.fn = fn
	f.mu.Unlock()

	if f.startErr != nil {
		return f.startErr
	}

	if f.onStart != nil {
		f.onStart(fn)
	}

	return nil
}

func (f *fakeSource) StopLive() {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
}

func (f *fakeSource) counts() (starts, stops int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.starts, f.stops
}

func measurementMsg(power float64, timestamp string) tibber.LiveMessage {
	var msg tibber.LiveMessage
	msg.Data = &struct {
		LiveMeasurement *tibber.LiveMeasurement `json:"liveMeasurement"`
	}{
		LiveMeasurement: &tibber.LiveMeasurement{
			Power:     &power,
			Timestamp: &timestamp,
		},
	}

	return msg
}

func TestReadingReturnsFirstMeasurement(t *testing.T) {
	src := &fakeSource{
		capable: true,
		onStart: func(fn tibber.LiveHandler) {
			go func() {
				time.Sleep(10 * time.Millisecond)
				fn(measurementMsg(1500, "2024-01-01T12:00:00Z"))
			}()
		},
	}

	live, err := Reading(context.Background(), src, 2*time.Second)
	require.NoError(t, err)
	require.NotNil(t, live.Power)
	assert.Equal(t, 1500.0, *live.Power)
	require.NotNil(t, live.Timestamp)
	assert.Equal(t, "2024-01-01T12:00:00Z", *live.Timestamp)

	starts, stops := src.counts()
	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, stops)
}

func TestReadingCapabilityShortCircuit(t *testing.T) {
	src := &fakeSource{capable: false}

	_, err := Reading(context.Background(), src, time.Second)
	assert.ErrorIs(t, err, ErrNotCapable)

	starts, stops := src.counts()
	assert.Zero(t, starts, "subscribe must never run for incapable homes")
	assert.Zero(t, stops)
}

func TestReadingTimeout(t *testing.T) {
	src := &fakeSource{capable: true}

	begin := time.Now()
	_, err := Reading(context.Background(), src, 50*time.Millisecond)
	elapsed := time.Since(begin)

	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)

	_, stops := src.counts()
	assert.Equal(t, 1, stops, "cleanup must run on timeout")
}

func TestReadingMalformedMessage(t *testing.T) {
	src := &fakeSource{
		capable: true,
		onStart: func(fn tibber.LiveHandler) {
			fn(tibber.LiveMessage{}) // no data envelope
		},
	}

	_, err := Reading(context.Background(), src, time.Second)
	assert.ErrorIs(t, err, ErrNoData)

	_, stops := src.counts()
	assert.Equal(t, 1, stops, "cleanup must run on malformed data")
}

func TestReadingFirstMessageWins(t *testing.T) {
	src := &fakeSource{
		capable: true,
		onStart: func(fn tibber.LiveHandler) {
			// Both delivered before the bridge starts waiting; the cell
			// keeps the first and drops the second.
			fn(measurementMsg(100, "2024-01-01T12:00:00Z"))
			fn(measurementMsg(200, "2024-01-01T12:00:02Z"))
		},
	}

	live, err := Reading(context.Background(), src, time.Second)
	require.NoError(t, err)
	require.NotNil(t, live.Power)
	assert.Equal(t, 100.0, *live.Power)
}

func TestReadingSubscribeError(t *testing.T) {
	src := &fakeSource{capable: true, startErr: assert.AnError}

	_, err := Reading(context.Background(), src, time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)

	_, stops := src.counts()
	assert.Zero(t, stops, "nothing to clean up when subscribe itself failed")
}

func TestReadingContextCancelled(t *testing.T) {
	src := &fakeSource{capable: true}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := Reading(ctx, src, time.Minute)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Reading did not return after cancellation")
	}

	_, stops := src.counts()
	assert.Equal(t, 1, stops, "cleanup must run on cancellation")
}

func TestReadingLateDeliveryIsInert(t *testing.T) {
	src := &fakeSource{capable: true}

	_, err := Reading(context.Background(), src, 20*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)

	// The feed may still push after the bridge has returned; the handler
	// must neither block nor panic.
	src.mu.Lock()
	fn := src.fn
	src.mu.Unlock()
	require.NotNil(t, fn)

	delivered := make(chan struct{})
	go func() {
		fn(measurementMsg(300, "2024-01-01T12:00:05Z"))
		fn(measurementMsg(400, "2024-01-01T12:00:07Z"))
		close(delivered)
	}()

	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("late delivery blocked")
	}
}
