// Package realtime converts the push-based live-measurement feed into a
// bounded, single-shot read: subscribe, wait for exactly one message or a
// timeout, unsubscribe. The caller always gets an answer and the feed is
// never left running.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/germanamz/tibber-mcp/pkg/tibber"
)

// The bridge's error taxonomy. Callers branch with errors.Is; everything
// else coming out of Reading is an upstream failure.
var (
	// ErrNotCapable means the home's meter does not push live measurements.
	ErrNotCapable = errors.New("realtime: home has no real-time monitoring capability")

	// ErrTimeout means no measurement arrived within the bound.
	ErrTimeout = errors.New("realtime: no live measurement arrived in time")

	// ErrNoData means a message arrived but carried no measurement.
	ErrNoData = errors.New("realtime: live message carried no measurement")
)

// DefaultTimeout bounds the wait for the first measurement when the caller
// passes no explicit timeout.
const DefaultTimeout = 30 * time.Second

// LiveSource is the slice of a home the bridge needs. *tibber.Home
// implements it.
type LiveSource interface {
	HasRealTime() bool
	StartLive(ctx context.Context, fn tibber.LiveHandler) error
	StopLive()
}

// Reading subscribes to src's live feed, waits for the first pushed
// measurement, and unsubscribes. Exactly one of these happens:
//
//   - the first message within the bound is returned (later ones are inert),
//   - ErrNoData if that message lacked the measurement envelope,
//   - ErrTimeout if nothing arrived within timeout,
//   - ErrNotCapable without ever subscribing,
//   - ctx.Err() if the caller gave up first,
//   - a wrapped upstream error if the subscription itself failed.
//
// On every path that subscribed, StopLive runs before Reading returns. A
// message racing the timeout lands in the buffered cell and is discarded
// with it; the non-blocking send keeps post-return pushes from blocking
// the feed's read loop.
func Reading(ctx context.Context, src LiveSource, timeout time.Duration) (*tibber.LiveMeasurement, error) {
	if !src.HasRealTime() {
		return nil, ErrNotCapable
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// Capacity-1 channel as a write-once cell: the first send wins, every
	// later send hits the default branch and is dropped.
	first := make(chan tibber.LiveMessage, 1)

	err := src.StartLive(ctx, func(msg tibber.LiveMessage) {
		select {
		case first <- msg:
		default:
		}
	})
	if err != nil {
		return nil, fmt.Errorf("realtime: subscribe: %w", err)
	}
	defer src.StopLive()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-first:
		if msg.Data == nil || msg.Data.LiveMeasurement == nil {
			return nil, ErrNoData
		}

		return msg.Data.LiveMeasurement, nil
	case <-timer.C:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
