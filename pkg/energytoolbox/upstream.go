package energytoolbox

import (
	"context"

	"github.com/germanamz/tibber-mcp/pkg/tibber"
)

// HomeAPI is the slice of a Tibber home the handlers use. *tibber.Home
// implements it; tests substitute fakes.
type HomeAPI interface {
	ID() string
	Name() string
	Address() string
	Country() string
	Currency() string
	PriceUnit() string
	HasActiveSubscription() bool
	HasRealTime() bool
	HasProduction() bool
	Metering() tibber.MeteringPointData

	HistoricData(ctx context.Context, q tibber.HistoricQuery) ([]tibber.HistoricEntry, error)
	UpdatePriceInfo(ctx context.Context) error
	PriceInfo() *tibber.PriceInfo

	StartLive(ctx context.Context, fn tibber.LiveHandler) error
	StopLive()
}

// Upstream is the handlers' view of the provider connection.
type Upstream interface {
	Homes() []HomeAPI
	HomeByID(id string) HomeAPI
}

// AcquireFunc yields a ready upstream connection. Handlers call it per
// invocation; the connection manager behind it memoizes the real client.
type AcquireFunc func(ctx context.Context) (Upstream, error)

// FromClient adapts a tibber.Client to the Upstream interface.
func FromClient(c *tibber.Client) Upstream {
	return clientUpstream{c}
}

type clientUpstream struct {
	c *tibber.Client
}

func (u clientUpstream) Homes() []HomeAPI {
	homes := u.c.Homes()
	out := make([]HomeAPI, len(homes))
	for i, h := range homes {
		out[i] = h
	}

	return out
}

func (u clientUpstream) HomeByID(id string) HomeAPI {
	h := u.c.HomeByID(id)
	if h == nil {
		return nil
	}

	return h
}
