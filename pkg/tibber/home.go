package tibber

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MeteringPointData is the grid-side metadata attached to a home.
type MeteringPointData struct {
	GridCompany                string   `json:"gridCompany"`
	EstimatedAnnualConsumption *float64 `json:"estimatedAnnualConsumption"`
	EnergyTaxType              string   `json:"energyTaxType"`
	VATType                    string   `json:"vatType"`
	ProductionEAN              string   `json:"productionEan"`
}

type homeData struct {
	ID      string `json:"id"`
	AppNick string `json:"appNickname"`
	Address struct {
		Address1 string `json:"address1"`
		Country  string `json:"country"`
	} `json:"address"`
	CurrentSubscription *struct {
		Status    string `json:"status"`
		PriceInfo *struct {
			Current *struct {
				Currency string `json:"currency"`
			} `json:"current"`
		} `json:"priceInfo"`
	} `json:"currentSubscription"`
	Features *struct {
		RealTimeConsumptionEnabled bool `json:"realTimeConsumptionEnabled"`
	} `json:"features"`
	MeteringPointData MeteringPointData `json:"meteringPointData"`
}

// Home is a handle to one Tibber home. Handles are created by
// Client.UpdateInfo and share the client's connection and rate limiter.
type Home struct {
	client *Client

	id       string
	nickname string
	address  string
	country  string
	currency string
	active   bool
	realTime bool
	metering MeteringPointData

	mu           sync.Mutex
	priceInfo    *PriceInfo
	live         *liveFeed
	liveStarting bool
}

func newHome(c *Client, hd homeData) *Home {
	h := &Home{
		client:   c,
		id:       hd.ID,
		nickname: hd.AppNick,
		address:  hd.Address.Address1,
		country:  hd.Address.Country,
		metering: hd.MeteringPointData,
	}

	if sub := hd.CurrentSubscription; sub != nil {
		h.active = sub.Status == "running"
		if sub.PriceInfo != nil && sub.PriceInfo.Current != nil {
			h.currency = sub.PriceInfo.Current.Currency
		}
	}

	if hd.Features != nil {
		h.realTime = hd.Features.RealTimeConsumptionEnabled
	}

	return h
}

// ID returns the opaque home identifier.
func (h *Home) ID() string { return h.id }

// Name returns the user-assigned nickname, falling back to the address.
func (h *Home) Name() string {
	if h.nickname != "" {
		return h.nickname
	}

	return h.address
}

// Address returns the first address line.
func (h *Home) Address() string { return h.address }

// Country returns the home's country code.
func (h *Home) Country() string { return h.country }

// Currency returns the billing currency, e.g. "NOK".
func (h *Home) Currency() string { return h.currency }

// PriceUnit returns the unit prices are quoted in, e.g. "NOK/kWh".
func (h *Home) PriceUnit() string {
	if h.currency == "" {
		return "kWh"
	}

	return h.currency + "/kWh"
}

// HasActiveSubscription reports whether the home has a running subscription.
func (h *Home) HasActiveSubscription() bool { return h.active }

// HasRealTime reports whether the home's meter pushes live measurements.
func (h *Home) HasRealTime() bool { return h.realTime }

// HasProduction reports whether the home feeds energy back to the grid.
func (h *Home) HasProduction() bool { return h.metering.ProductionEAN != "" }

// Metering returns the home's metering point data.
func (h *Home) Metering() MeteringPointData { return h.metering }

// Resolution is the granularity of historic data aggregation.
type Resolution string

// Supported resolutions.
const (
	ResolutionHourly  Resolution = "HOURLY"
	ResolutionDaily   Resolution = "DAILY"
	ResolutionWeekly  Resolution = "WEEKLY"
	ResolutionMonthly Resolution = "MONTHLY"
	ResolutionAnnual  Resolution = "ANNUAL"
)

// ParseResolution validates a resolution string.
func ParseResolution(s string) (Resolution, error) {
	switch r := Resolution(s); r {
	case ResolutionHourly, ResolutionDaily, ResolutionWeekly, ResolutionMonthly, ResolutionAnnual:
		return r, nil
	default:
		return "", fmt.Errorf("tibber: unknown resolution %q", s)
	}
}

// HistoricEntry is one aggregated consumption or production data point.
// Value and Cost are nil when the meter reported no data for the period.
type HistoricEntry struct {
	From     time.Time
	To       time.Time
	Value    *float64 // kWh consumed or produced
	Cost     *float64 // cost for consumption, profit for production
	Currency string
}

// HistoricQuery selects a window of historic data.
type HistoricQuery struct {
	Resolution Resolution
	Last       int       // number of most recent data points; ignored when Start is set and 0
	Production bool      // production/profit instead of consumption/cost
	Start      time.Time // optional window start; zero means "last N points"
}

const consumptionQuery = `query ($home: ID!, $resolution: EnergyResolution!, $last: Int, $after: String) {
  viewer { home(id: $home) {
    consumption(resolution: $resolution, last: $last, after: $after) {
      nodes { from to consumption cost currency }
    }
  } }
}`

const productionQuery = `query ($home: ID!, $resolution: EnergyResolution!, $last: Int, $after: String) {
  viewer { home(id: $home) {
    production(resolution: $resolution, last: $last, after: $after) {
      nodes { from to production profit currency }
    }
  } }
}`

type historicNode struct {
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
	Consumption *float64  `json:"consumption"`
	Cost        *float64  `json:"cost"`
	Production  *float64  `json:"production"`
	Profit      *float64  `json:"profit"`
	Currency    string    `json:"currency"`
}

type historicData struct {
	Viewer struct {
		Home struct {
			Consumption *struct {
				Nodes []historicNode `json:"nodes"`
			} `json:"consumption"`
			Production *struct {
				Nodes []historicNode `json:"nodes"`
			} `json:"production"`
		} `json:"home"`
	} `json:"viewer"`
}

// HistoricData fetches aggregated consumption or production data. When
// q.Start is set the window begins there; a zero q.Last then means "until
// the end of that month".
func (h *Home) HistoricData(ctx context.Context, q HistoricQuery) ([]HistoricEntry, error) {
	if q.Resolution == "" {
		q.Resolution = ResolutionHourly
	}

	vars := map[string]any{
		"home":       h.id,
		"resolution": string(q.Resolution),
	}

	last := q.Last
	if !q.Start.IsZero() {
		// The API pages forward from an opaque cursor; a base64 RFC 3339
		// timestamp positions the cursor at the window start.
		cursor := base64.StdEncoding.EncodeToString([]byte(q.Start.Format(time.RFC3339)))
		vars["after"] = cursor
		if last == 0 {
			last = pointsUntilEndOfMonth(q.Start, q.Resolution)
		}
	}
	vars["last"] = last

	document := consumptionQuery
	if q.Production {
		document = productionQuery
	}

	var data historicData
	if err := h.client.query(ctx, document, vars, &data); err != nil {
		return nil, fmt.Errorf("tibber: historic data for %s: %w", h.id, err)
	}

	var nodes []historicNode
	switch {
	case q.Production && data.Viewer.Home.Production != nil:
		nodes = data.Viewer.Home.Production.Nodes
	case !q.Production && data.Viewer.Home.Consumption != nil:
		nodes = data.Viewer.Home.Consumption.Nodes
	}

	entries := make([]HistoricEntry, 0, len(nodes))
	for _, n := range nodes {
		e := HistoricEntry{From: n.From, To: n.To, Currency: n.Currency}
		if q.Production {
			e.Value, e.Cost = n.Production, n.Profit
		} else {
			e.Value, e.Cost = n.Consumption, n.Cost
		}
		entries = append(entries, e)
	}

	return entries, nil
}

// pointsUntilEndOfMonth converts "from start to the end of its month" into
// a data point count at the given resolution.
func pointsUntilEndOfMonth(start time.Time, r Resolution) int {
	monthEnd := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location()).AddDate(0, 1, 0)
	span := monthEnd.Sub(start)

	switch r {
	case ResolutionHourly:
		return int(span / time.Hour)
	case ResolutionDaily:
		return int(span / (24 * time.Hour))
	case ResolutionWeekly:
		return int(span/(7*24*time.Hour)) + 1
	default:
		return 1
	}
}

// PricePoint is the price for one period.
type PricePoint struct {
	Total    float64   `json:"total"`
	Level    string    `json:"level"`
	StartsAt time.Time `json:"startsAt"`
}

// PriceInfo holds the current price and the hourly price lists published
// for today and (after 13:00 CET) tomorrow.
type PriceInfo struct {
	Current  PricePoint
	Today    []PricePoint
	Tomorrow []PricePoint
}

const priceInfoQuery = `query ($home: ID!) {
  viewer { home(id: $home) {
    currentSubscription { priceInfo {
      current { total level startsAt currency }
      today { total level startsAt }
      tomorrow { total level startsAt }
    } }
  } }
}`

type priceInfoData struct {
	Viewer struct {
		Home struct {
			CurrentSubscription *struct {
				PriceInfo *struct {
					Current *struct {
						Total    float64   `json:"total"`
						Level    string    `json:"level"`
						StartsAt time.Time `json:"startsAt"`
						Currency string    `json:"currency"`
					} `json:"current"`
					Today    []PricePoint `json:"today"`
					Tomorrow []PricePoint `json:"tomorrow"`
				} `json:"priceInfo"`
			} `json:"currentSubscription"`
		} `json:"home"`
	} `json:"viewer"`
}

// UpdatePriceInfo fetches current, today and tomorrow prices.
func (h *Home) UpdatePriceInfo(ctx context.Context) error {
	var data priceInfoData
	if err := h.client.query(ctx, priceInfoQuery, map[string]any{"home": h.id}, &data); err != nil {
		return fmt.Errorf("tibber: price info for %s: %w", h.id, err)
	}

	sub := data.Viewer.Home.CurrentSubscription
	if sub == nil || sub.PriceInfo == nil {
		return fmt.Errorf("tibber: no price info for %s", h.id)
	}

	pi := &PriceInfo{
		Today:    sub.PriceInfo.Today,
		Tomorrow: sub.PriceInfo.Tomorrow,
	}
	if cur := sub.PriceInfo.Current; cur != nil {
		pi.Current = PricePoint{Total: cur.Total, Level: cur.Level, StartsAt: cur.StartsAt}
		if cur.Currency != "" {
			h.currency = cur.Currency
		}
	}

	h.mu.Lock()
	h.priceInfo = pi
	h.mu.Unlock()

	return nil
}

// PriceInfo returns the prices from the last UpdatePriceInfo, or nil.
func (h *Home) PriceInfo() *PriceInfo {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.priceInfo
}

// PriceStats are aggregates over today's hourly prices. Night covers
// 00-08, Day 08-20, Evening 20-24.
type PriceStats struct {
	Max     float64
	Avg     float64
	Min     float64
	Night   float64
	Day     float64
	Evening float64
}

// Stats aggregates today's price list. The zero value is returned when no
// prices are published.
func (pi *PriceInfo) Stats() PriceStats {
	if len(pi.Today) == 0 {
		return PriceStats{}
	}

	var s PriceStats
	s.Min = pi.Today[0].Total
	var sum float64
	var night, day, evening []float64

	for _, p := range pi.Today {
		sum += p.Total
		if p.Total > s.Max {
			s.Max = p.Total
		}
		if p.Total < s.Min {
			s.Min = p.Total
		}

		switch hour := p.StartsAt.Hour(); {
		case hour < 8:
			night = append(night, p.Total)
		case hour < 20:
			day = append(day, p.Total)
		default:
			evening = append(evening, p.Total)
		}
	}

	s.Avg = sum / float64(len(pi.Today))
	s.Night = mean(night)
	s.Day = mean(day)
	s.Evening = mean(evening)

	return s
}

// CurrentRank returns the 1-based rank of the current price among today's
// prices, cheapest first, and the number of ranked periods. Zero when no
// prices are published.
func (pi *PriceInfo) CurrentRank() (rank, of int) {
	if len(pi.Today) == 0 {
		return 0, 0
	}

	totals := make([]float64, len(pi.Today))
	for i, p := range pi.Today {
		totals[i] = p.Total
	}
	sort.Float64s(totals)

	for i, t := range totals {
		if t >= pi.Current.Total {
			return i + 1, len(totals)
		}
	}

	return len(totals), len(totals)
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}

	var sum float64
	for _, v := range vals {
		sum += v
	}

	return sum / float64(len(vals))
}
