// Package energytoolbox provides the Tibber data tools: home listing,
// consumption/production history, price info and forecasts, and a
// single-shot real-time power reading. Each handler resolves the upstream
// connection lazily, calls the API, and renders the result as a text
// block. Failures come back as descriptive text at the tool boundary.
package energytoolbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/germanamz/tibber-mcp/pkg/tools/toolbox"
)

// DefaultRealtimeTimeout bounds the wait for the first live measurement.
const DefaultRealtimeTimeout = 30 * time.Second

var errMissingHomeID = errors.New("home_id is required")

// Toolbox builds the seven energy tools on top of an upstream acquirer.
type Toolbox struct {
	acquire   AcquireFunc
	rtTimeout time.Duration
	log       zerolog.Logger
}

// Option configures a Toolbox.
type Option func(*Toolbox)

// WithRealtimeTimeout sets the bound for get-realtime waits.
func WithRealtimeTimeout(d time.Duration) Option {
	return func(t *Toolbox) {
		if d > 0 {
			t.rtTimeout = d
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(t *Toolbox) { t.log = log }
}

// New creates a Toolbox that reaches upstream through acquire.
func New(acquire AcquireFunc, opts ...Option) *Toolbox {
	t := &Toolbox{
		acquire:   acquire,
		rtTimeout: DefaultRealtimeTimeout,
		log:       zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Tools returns the seven tools, registered in their served order.
func (t *Toolbox) Tools() *toolbox.Box {
	box := toolbox.New()
	box.Register(
		t.listHomesTool(),
		t.consumptionTool(),
		t.productionTool(),
		t.priceInfoTool(),
		t.realtimeTool(),
		t.historicTool(),
		t.priceForecastTool(),
	)

	return box
}

// lookup resolves a home by ID. A missing home is reported to the caller
// as plain text, not an error: the call itself succeeded.
func (t *Toolbox) lookup(ctx context.Context, homeID string) (HomeAPI, string, error) {
	if homeID == "" {
		return nil, "", errMissingHomeID
	}

	up, err := t.acquire(ctx)
	if err != nil {
		return nil, "", err
	}

	home := up.HomeByID(homeID)
	if home == nil {
		return nil, fmt.Sprintf("No home found with ID %s", homeID), nil
	}

	return home, "", nil
}
