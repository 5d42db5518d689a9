package tibber

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const viewerResponse = `{"data":{"viewer":{
	"name":"Arya Stark",
	"websocketSubscriptionUrl":"wss://example.test/subscriptions",
	"homes":[
		{
			"id":"home-1",
			"appNickname":"Winterfell",
			"address":{"address1":"Kungsgatan 8","country":"SE"},
			"currentSubscription":{"status":"running","priceInfo":{"current":{"currency":"SEK"}}},
			"features":{"realTimeConsumptionEnabled":true},
			"meteringPointData":{
				"gridCompany":"Ellevio AB",
				"estimatedAnnualConsumption":12000,
				"energyTaxType":"normal",
				"vatType":"normal",
				"productionEan":"735999"
			}
		},
		{
			"id":"home-2",
			"appNickname":"",
			"address":{"address1":"Storgata 2","country":"NO"},
			"currentSubscription":null,
			"features":null,
			"meteringPointData":{}
		}
	]
}}}`

// newTestClient points a Client at a stub GraphQL server. The handler
// receives the decoded request and returns the raw response body.
func newTestClient(t *testing.T, handler func(t *testing.T, req gqlRequest, w http.ResponseWriter)) *Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "tester/1.0", r.Header.Get("User-Agent"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var req gqlRequest
		require.NoError(t, json.Unmarshal(body, &req))

		handler(t, req, w)
	}))
	t.Cleanup(srv.Close)

	c := New("test-token",
		WithEndpoint(srv.URL),
		WithUserAgent("tester/1.0"),
		WithRateLimit(rate.NewLimiter(rate.Inf, 1)),
	)
	t.Cleanup(c.Close)

	return c
}

func respond(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

func TestUpdateInfo(t *testing.T) {
	c := newTestClient(t, func(_ *testing.T, _ gqlRequest, w http.ResponseWriter) {
		respond(w, viewerResponse)
	})

	require.NoError(t, c.UpdateInfo(context.Background()))

	assert.Equal(t, "Arya Stark", c.Name())
	assert.Equal(t, "wss://example.test/subscriptions", c.subURL)
	require.Len(t, c.Homes(), 2)

	h := c.HomeByID("home-1")
	require.NotNil(t, h)
	assert.Equal(t, "Winterfell", h.Name())
	assert.Equal(t, "Kungsgatan 8", h.Address())
	assert.Equal(t, "SE", h.Country())
	assert.Equal(t, "SEK", h.Currency())
	assert.Equal(t, "SEK/kWh", h.PriceUnit())
	assert.True(t, h.HasActiveSubscription())
	assert.True(t, h.HasRealTime())
	assert.True(t, h.HasProduction())
	assert.Equal(t, "Ellevio AB", h.Metering().GridCompany)
	require.NotNil(t, h.Metering().EstimatedAnnualConsumption)
	assert.InDelta(t, 12000, *h.Metering().EstimatedAnnualConsumption, 0.01)

	// No subscription, no features, no nickname.
	h2 := c.HomeByID("home-2")
	require.NotNil(t, h2)
	assert.Equal(t, "Storgata 2", h2.Name())
	assert.Equal(t, "kWh", h2.PriceUnit())
	assert.False(t, h2.HasActiveSubscription())
	assert.False(t, h2.HasRealTime())
	assert.False(t, h2.HasProduction())

	assert.Nil(t, c.HomeByID("unknown"))
}

func TestUpdateInfoGraphQLErrors(t *testing.T) {
	c := newTestClient(t, func(_ *testing.T, _ gqlRequest, w http.ResponseWriter) {
		respond(w, `{"errors":[{"message":"invalid token"},{"message":"try again"}]}`)
	})

	err := c.UpdateInfo(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token; try again")
}

func TestUpdateInfoHTTPError(t *testing.T) {
	c := newTestClient(t, func(_ *testing.T, _ gqlRequest, w http.ResponseWriter) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, "rate limited")
	})

	err := c.UpdateInfo(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestQueryContextCancelled(t *testing.T) {
	c := newTestClient(t, func(_ *testing.T, _ gqlRequest, w http.ResponseWriter) {
		respond(w, viewerResponse)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Error(t, c.UpdateInfo(ctx))
}
