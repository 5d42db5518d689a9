// Package tibber is a client for the Tibber GraphQL API. It covers the
// parts of the API the tool server needs: viewer and home metadata,
// historic consumption/production queries, price info, and the
// live-measurement websocket subscription.
package tibber

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultEndpoint is the Tibber GraphQL HTTP endpoint.
const DefaultEndpoint = "https://api.tibber.com/v1-beta/gql"

// DefaultSubscriptionURL is used for live-measurement subscriptions when the
// viewer query does not report a websocketSubscriptionUrl.
const DefaultSubscriptionURL = "wss://websocket-api.tibber.com/v1-beta/gql/subscriptions"

// DefaultTimeout bounds individual GraphQL requests.
const DefaultTimeout = 30 * time.Second

// defaultQueryRate limits outbound GraphQL queries. Tibber enforces 100
// requests per 5 minutes per token; one request per second with a small
// burst stays well inside that.
var defaultQueryRate = rate.NewLimiter(rate.Limit(1), 5)

// Client is an authenticated Tibber API client. A Client owns at most one
// set of home handles, refreshed by UpdateInfo.
type Client struct {
	token     string
	userAgent string
	endpoint  string
	subURL    string
	http      *http.Client
	limiter   *rate.Limiter
	log       zerolog.Logger

	mu    sync.Mutex
	name  string
	homes []*Home
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgent overrides the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithTimeout sets the per-request timeout for GraphQL queries.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithEndpoint overrides the GraphQL endpoint. Intended for tests.
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

// WithSubscriptionURL overrides the websocket subscription URL. Intended
// for tests; in production the URL reported by the viewer query wins.
func WithSubscriptionURL(url string) Option {
	return func(c *Client) { c.subURL = url }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithRateLimit replaces the default query rate limiter.
func WithRateLimit(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// New creates a Client for the given access token.
func New(token string, opts ...Option) *Client {
	c := &Client{
		token:     token,
		userAgent: "tibber-mcp",
		endpoint:  DefaultEndpoint,
		subURL:    DefaultSubscriptionURL,
		http:      &http.Client{Timeout: DefaultTimeout},
		limiter:   defaultQueryRate,
		log:       zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

const viewerQuery = `{
  viewer {
    name
    websocketSubscriptionUrl
    homes {
      id
      appNickname
      address { address1 country }
      currentSubscription {
        status
        priceInfo { current { currency } }
      }
      features { realTimeConsumptionEnabled }
      meteringPointData {
        gridCompany
        estimatedAnnualConsumption
        energyTaxType
        vatType
        productionEan
      }
    }
  }
}`

type viewerData struct {
	Viewer struct {
		Name                     string     `json:"name"`
		WebsocketSubscriptionURL string     `json:"websocketSubscriptionUrl"`
		Homes                    []homeData `json:"homes"`
	} `json:"viewer"`
}

// UpdateInfo fetches the viewer and refreshes the set of home handles.
// Handles returned by earlier Homes/HomeByID calls stay valid but are no
// longer refreshed.
func (c *Client) UpdateInfo(ctx context.Context) error {
	var data viewerData
	if err := c.query(ctx, viewerQuery, nil, &data); err != nil {
		return fmt.Errorf("tibber: update info: %w", err)
	}

	homes := make([]*Home, 0, len(data.Viewer.Homes))
	for _, hd := range data.Viewer.Homes {
		homes = append(homes, newHome(c, hd))
	}

	c.mu.Lock()
	c.name = data.Viewer.Name
	if data.Viewer.WebsocketSubscriptionURL != "" {
		c.subURL = data.Viewer.WebsocketSubscriptionURL
	}
	c.homes = homes
	c.mu.Unlock()

	c.log.Debug().Int("homes", len(homes)).Msg("viewer info updated")

	return nil
}

// Name returns the viewer name from the last UpdateInfo.
func (c *Client) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.name
}

// Homes returns the home handles from the last UpdateInfo.
func (c *Client) Homes() []*Home {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.homes
}

// HomeByID returns the home with the given ID, or nil if unknown.
func (c *Client) HomeByID(id string) *Home {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, h := range c.homes {
		if h.id == id {
			return h
		}
	}

	return nil
}

// Close stops any open live feeds and releases idle connections. The
// Client must not be used afterwards.
func (c *Client) Close() {
	c.mu.Lock()
	homes := c.homes
	c.homes = nil
	c.mu.Unlock()

	for _, h := range homes {
		h.StopLive()
	}

	c.http.CloseIdleConnections()
}
