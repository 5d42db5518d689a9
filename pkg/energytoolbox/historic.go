package energytoolbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/germanamz/tibber-mcp/pkg/tibber"
	"github.com/germanamz/tibber-mcp/pkg/tools/toolbox"
)

const defaultHistoricCount = 24

func (t *Toolbox) consumptionTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "get-consumption",
		Description: "Get energy consumption data for a specific home",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"home_id":{"type":"string","description":"The Tibber home ID"},"hours":{"type":"integer","description":"Number of hours of historical data to retrieve","default":24}},"required":["home_id"]}`),
		Handler:     t.handleConsumption,
	}
}

func (t *Toolbox) productionTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "get-production",
		Description: "Get energy production data for a specific home",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"home_id":{"type":"string","description":"The Tibber home ID"},"hours":{"type":"integer","description":"Number of hours of historical data to retrieve","default":24}},"required":["home_id"]}`),
		Handler:     t.handleProduction,
	}
}

func (t *Toolbox) historicTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "get-historic",
		Description: "Get historical data with custom resolution and optional start date",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"home_id":{"type":"string","description":"The Tibber home ID"},"resolution":{"type":"string","description":"Time resolution of data","enum":["HOURLY","DAILY","WEEKLY","MONTHLY","ANNUAL"],"default":"HOURLY"},"count":{"type":"integer","description":"Number of data points to retrieve. If start_date is provided and count is 0, will fetch until end of month.","default":24},"production":{"type":"boolean","description":"Get production instead of consumption data","default":false},"start_date":{"type":"string","description":"Optional start date in YYYY-MM-DD format. If provided, count becomes optional.","pattern":"^\\d{4}-\\d{2}-\\d{2}$"}},"required":["home_id"]}`),
		Handler:     t.handleHistoric,
	}
}

type hoursInput struct {
	HomeID string `json:"home_id"`
	Hours  int    `json:"hours"`
}

func (t *Toolbox) handleConsumption(ctx context.Context, input json.RawMessage) (string, error) {
	var in hoursInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("get-consumption: invalid input: %w", err)
	}
	if in.Hours <= 0 {
		in.Hours = defaultHistoricCount
	}

	home, notFound, err := t.lookup(ctx, in.HomeID)
	if err != nil {
		return "", fmt.Errorf("get-consumption: %w", err)
	}
	if notFound != "" {
		return notFound, nil
	}

	entries, err := home.HistoricData(ctx, tibber.HistoricQuery{
		Resolution: tibber.ResolutionHourly,
		Last:       in.Hours,
	})
	if err != nil {
		return "", fmt.Errorf("get-consumption: %w", err)
	}
	if len(entries) == 0 {
		return "No consumption data available for the specified period", nil
	}

	return renderEntries("Energy Consumption Data:", "Consumption", "Cost", entries, home.Currency()), nil
}

func (t *Toolbox) handleProduction(ctx context.Context, input json.RawMessage) (string, error) {
	var in hoursInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("get-production: invalid input: %w", err)
	}
	if in.Hours <= 0 {
		in.Hours = defaultHistoricCount
	}

	home, notFound, err := t.lookup(ctx, in.HomeID)
	if err != nil {
		return "", fmt.Errorf("get-production: %w", err)
	}
	if notFound != "" {
		return notFound, nil
	}

	if !home.HasProduction() {
		return "This home does not have production capability", nil
	}

	entries, err := home.HistoricData(ctx, tibber.HistoricQuery{
		Resolution: tibber.ResolutionHourly,
		Last:       in.Hours,
		Production: true,
	})
	if err != nil {
		return "", fmt.Errorf("get-production: %w", err)
	}
	if len(entries) == 0 {
		return "No production data available for the specified period", nil
	}

	return renderEntries("Energy Production Data:", "Production", "Profit", entries, home.Currency()), nil
}

type historicInput struct {
	HomeID     string `json:"home_id"`
	Resolution string `json:"resolution"`
	Count      *int   `json:"count"`
	Production bool   `json:"production"`
	StartDate  string `json:"start_date"`
}

func (t *Toolbox) handleHistoric(ctx context.Context, input json.RawMessage) (string, error) {
	var in historicInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("get-historic: invalid input: %w", err)
	}

	if in.Resolution == "" {
		in.Resolution = string(tibber.ResolutionHourly)
	}
	resolution, err := tibber.ParseResolution(in.Resolution)
	if err != nil {
		return fmt.Sprintf("Invalid resolution: %s. Use HOURLY, DAILY, WEEKLY, MONTHLY or ANNUAL.", in.Resolution), nil
	}

	home, notFound, err := t.lookup(ctx, in.HomeID)
	if err != nil {
		return "", fmt.Errorf("get-historic: %w", err)
	}
	if notFound != "" {
		return notFound, nil
	}

	if in.Production && !home.HasProduction() {
		return "This home does not have production capability", nil
	}

	q := tibber.HistoricQuery{
		Resolution: resolution,
		Production: in.Production,
	}

	// An explicit count of 0 together with a start date means "until the
	// end of that month"; an absent count defaults to 24.
	if in.Count != nil {
		q.Last = *in.Count
	} else {
		q.Last = defaultHistoricCount
	}

	if in.StartDate != "" {
		start, err := time.Parse("2006-01-02", in.StartDate)
		if err != nil {
			return fmt.Sprintf("Invalid date format: %s. Please use YYYY-MM-DD format.", in.StartDate), nil
		}
		q.Start = start.UTC()
	}

	entries, err := home.HistoricData(ctx, q)
	if err != nil {
		return "", fmt.Errorf("get-historic: %w", err)
	}

	kind, costLabel := "Consumption", "Cost"
	if in.Production {
		kind, costLabel = "Production", "Profit"
	}

	if len(entries) == 0 {
		return fmt.Sprintf("No %s data available for the specified period", strings.ToLower(kind)), nil
	}

	header := fmt.Sprintf("Historical %s Data (%s):", kind, resolution)

	return renderEntries(header, kind, costLabel, entries, home.Currency()), nil
}

// renderEntries renders a history listing: one block per data point with
// timestamp, energy value and money value.
func renderEntries(header, valueLabel, costLabel string, entries []tibber.HistoricEntry, currency string) string {
	var sb strings.Builder
	sb.WriteString(header)

	for _, e := range entries {
		fmt.Fprintf(&sb, "\n\nTime: %s", fmtUTC(e.From))
		fmt.Fprintf(&sb, "\n%s: %s", valueLabel, fmtUnit(e.Value, 2, "kWh"))

		unit := e.Currency
		if unit == "" {
			unit = currency
		}
		fmt.Fprintf(&sb, "\n%s: %s", costLabel, fmtUnit(e.Cost, 2, unit))
	}

	return sb.String()
}
