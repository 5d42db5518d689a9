package tibber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// ErrLiveActive is returned by StartLive when a feed is already running
// for the home. Realtime calls for the same home are serialized by this
// guard instead of racing on unsubscribe.
var ErrLiveActive = errors.New("tibber: live feed already active for home")

// LiveMeasurement is one telemetry snapshot pushed by the meter. Every
// field is optional; meters report different subsets.
type LiveMeasurement struct {
	Timestamp              *string  `json:"timestamp"`
	Power                  *float64 `json:"power"`
	AccumulatedConsumption *float64 `json:"accumulatedConsumption"`
	AccumulatedCost        *float64 `json:"accumulatedCost"`
	Currency               *string  `json:"currency"`
	AveragePower           *float64 `json:"averagePower"`
	MinPower               *float64 `json:"minPower"`
	MaxPower               *float64 `json:"maxPower"`
	VoltagePhase1          *float64 `json:"voltagePhase1"`
	VoltagePhase2          *float64 `json:"voltagePhase2"`
	VoltagePhase3          *float64 `json:"voltagePhase3"`
	CurrentL1              *float64 `json:"currentL1"`
	CurrentL2              *float64 `json:"currentL2"`
	CurrentL3              *float64 `json:"currentL3"`
	PowerFactor            *float64 `json:"powerFactor"`
	SignalStrength         *float64 `json:"signalStrength"`
}

// LiveMessage is the raw subscription payload: a data envelope wrapping a
// live measurement. Either level may be absent on malformed pushes; the
// consumer checks the envelope.
type LiveMessage struct {
	Data *struct {
		LiveMeasurement *LiveMeasurement `json:"liveMeasurement"`
	} `json:"data"`
}

// LiveHandler receives pushed live messages. It is called from the feed's
// read goroutine and must not block.
type LiveHandler func(LiveMessage)

// wsEnvelope is the graphql-transport-ws message frame.
type wsEnvelope struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// liveSubscriptionID identifies the single subscription on a feed
// connection. Each feed has its own connection, so a fixed ID suffices.
const liveSubscriptionID = "1"

const liveQuery = `subscription { liveMeasurement(homeId: "%s") {
  timestamp power accumulatedConsumption accumulatedCost currency
  averagePower minPower maxPower
  voltagePhase1 voltagePhase2 voltagePhase3
  currentL1 currentL2 currentL3
  powerFactor signalStrength
} }`

type liveFeed struct {
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}
}

// StartLive opens a live-measurement subscription for the home and invokes
// fn for every pushed message until StopLive is called or the connection
// drops. ctx bounds the dial and subscription handshake only; the feed
// itself outlives it. At most one feed per home may be active.
func (h *Home) StartLive(ctx context.Context, fn LiveHandler) error {
	if fn == nil {
		return errors.New("tibber: nil live handler")
	}

	h.mu.Lock()
	if h.live != nil || h.liveStarting {
		h.mu.Unlock()

		return ErrLiveActive
	}
	h.liveStarting = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		h.liveStarting = false
		h.mu.Unlock()
	}()

	conn, err := h.client.dialLive(ctx)
	if err != nil {
		return err
	}

	if err := subscribeLive(ctx, conn, h.id); err != nil {
		_ = conn.CloseNow()

		return err
	}

	feedCtx, cancel := context.WithCancel(context.Background())
	feed := &liveFeed{conn: conn, cancel: cancel, done: make(chan struct{})}

	h.mu.Lock()
	h.live = feed
	h.mu.Unlock()

	go h.readLive(feedCtx, feed, fn)

	h.client.log.Debug().Str("home", h.id).Msg("live feed started")

	return nil
}

// StopLive tears down the home's live feed. It is idempotent and safe to
// call when no feed is active. It returns after the read goroutine has
// exited, so no handler invocation can follow it.
func (h *Home) StopLive() {
	h.mu.Lock()
	feed := h.live
	h.live = nil
	h.mu.Unlock()

	if feed == nil {
		return
	}

	// Best-effort complete so the server drops the subscription cleanly.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	_ = wsjson.Write(ctx, feed.conn, wsEnvelope{ID: liveSubscriptionID, Type: "complete"})
	cancel()

	feed.cancel()
	_ = feed.conn.Close(websocket.StatusNormalClosure, "unsubscribe")
	<-feed.done

	h.client.log.Debug().Str("home", h.id).Msg("live feed stopped")
}

// dialLive connects to the subscription endpoint and completes the
// graphql-transport-ws init handshake.
func (c *Client) dialLive(ctx context.Context) (*websocket.Conn, error) {
	hdr := http.Header{}
	hdr.Set("User-Agent", c.userAgent)

	conn, _, err := websocket.Dial(ctx, c.subURL, &websocket.DialOptions{
		Subprotocols: []string{"graphql-transport-ws"},
		HTTPHeader:   hdr,
	})
	if err != nil {
		return nil, fmt.Errorf("tibber: dial live feed: %w", err)
	}

	initPayload, _ := json.Marshal(map[string]string{"token": c.token})
	if err := wsjson.Write(ctx, conn, wsEnvelope{Type: "connection_init", Payload: initPayload}); err != nil {
		_ = conn.CloseNow()

		return nil, fmt.Errorf("tibber: send connection_init: %w", err)
	}

	for {
		var env wsEnvelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			_ = conn.CloseNow()

			return nil, fmt.Errorf("tibber: await connection_ack: %w", err)
		}

		switch env.Type {
		case "connection_ack":
			return conn, nil
		case "ping":
			_ = wsjson.Write(ctx, conn, wsEnvelope{Type: "pong"})
		default:
			_ = conn.CloseNow()

			return nil, fmt.Errorf("tibber: expected connection_ack, got %q", env.Type)
		}
	}
}

// subscribeLive registers the liveMeasurement subscription on an
// acked connection.
func subscribeLive(ctx context.Context, conn *websocket.Conn, homeID string) error {
	payload, _ := json.Marshal(map[string]string{"query": fmt.Sprintf(liveQuery, homeID)})
	env := wsEnvelope{ID: liveSubscriptionID, Type: "subscribe", Payload: payload}
	if err := wsjson.Write(ctx, conn, env); err != nil {
		return fmt.Errorf("tibber: subscribe live: %w", err)
	}

	return nil
}

// readLive pumps subscription messages to the handler until the feed is
// stopped or the connection closes.
func (h *Home) readLive(ctx context.Context, feed *liveFeed, fn LiveHandler) {
	defer close(feed.done)

	for {
		var env wsEnvelope
		if err := wsjson.Read(ctx, feed.conn, &env); err != nil {
			if ctx.Err() == nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				h.client.log.Warn().Err(err).Str("home", h.id).Msg("live feed read failed")
			}

			return
		}

		switch env.Type {
		case "next":
			if env.ID != liveSubscriptionID {
				continue
			}

			var msg LiveMessage
			if err := json.Unmarshal(env.Payload, &msg); err != nil {
				h.client.log.Warn().Err(err).Str("home", h.id).Msg("undecodable live message")

				continue
			}

			fn(msg)
		case "error":
			h.client.log.Warn().Str("home", h.id).RawJSON("payload", errPayload(env.Payload)).Msg("live subscription error")

			return
		case "complete":
			return
		case "ping":
			_ = wsjson.Write(ctx, feed.conn, wsEnvelope{Type: "pong"})
		}
	}
}

// errPayload guards RawJSON against empty payloads, which zerolog would
// render as invalid JSON.
func errPayload(p json.RawMessage) json.RawMessage {
	if len(p) == 0 {
		return json.RawMessage("null")
	}

	return p
}
