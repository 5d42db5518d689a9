package energytoolbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/germanamz/tibber-mcp/pkg/tibber"
	"github.com/germanamz/tibber-mcp/pkg/tools/toolbox"
)

func (t *Toolbox) priceInfoTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "get-price-info",
		Description: "Get current and upcoming electricity prices for a specific home",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"home_id":{"type":"string","description":"The Tibber home ID"}},"required":["home_id"]}`),
		Handler:     t.handlePriceInfo,
	}
}

func (t *Toolbox) priceForecastTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "get-price-forecast",
		Description: "Get detailed price forecasts for today and tomorrow",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"home_id":{"type":"string","description":"The Tibber home ID"}},"required":["home_id"]}`),
		Handler:     t.handlePriceForecast,
	}
}

type homeInput struct {
	HomeID string `json:"home_id"`
}

func (t *Toolbox) handlePriceInfo(ctx context.Context, input json.RawMessage) (string, error) {
	var in homeInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("get-price-info: invalid input: %w", err)
	}

	home, notFound, err := t.lookup(ctx, in.HomeID)
	if err != nil {
		return "", fmt.Errorf("get-price-info: %w", err)
	}
	if notFound != "" {
		return notFound, nil
	}

	if err := home.UpdatePriceInfo(ctx); err != nil {
		return "", fmt.Errorf("get-price-info: %w", err)
	}

	pi := home.PriceInfo()
	if pi == nil {
		return "No price information available", nil
	}

	unit := home.PriceUnit()

	var sb strings.Builder
	sb.WriteString("Electricity Price Information:\n")

	if !pi.Current.StartsAt.IsZero() {
		rank, of := pi.CurrentRank()
		fmt.Fprintf(&sb, "\nCurrent Price (%s)\n", pi.Current.StartsAt.Format("2006-01-02 15:04"))
		fmt.Fprintf(&sb, "Price: %s\n", fmtPrice(pi.Current.Total, unit))
		fmt.Fprintf(&sb, "Level: %s\n", orNA(pi.Current.Level))
		fmt.Fprintf(&sb, "Rank today: %d/%d\n", rank, of)
	}

	writePriceStats(&sb, pi, unit)

	return strings.TrimRight(sb.String(), "\n"), nil
}

func (t *Toolbox) handlePriceForecast(ctx context.Context, input json.RawMessage) (string, error) {
	var in homeInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("get-price-forecast: invalid input: %w", err)
	}

	home, notFound, err := t.lookup(ctx, in.HomeID)
	if err != nil {
		return "", fmt.Errorf("get-price-forecast: %w", err)
	}
	if notFound != "" {
		return notFound, nil
	}

	if err := home.UpdatePriceInfo(ctx); err != nil {
		return "", fmt.Errorf("get-price-forecast: %w", err)
	}

	pi := home.PriceInfo()
	if pi == nil || (len(pi.Today) == 0 && len(pi.Tomorrow) == 0) {
		return "No price forecast data available", nil
	}

	unit := home.PriceUnit()

	var sb strings.Builder
	sb.WriteString("Price Forecast:\n")

	if len(pi.Today) > 0 {
		sb.WriteString("\nToday's Prices:\n")
		writePriceList(&sb, pi.Today, unit)
	}

	if len(pi.Tomorrow) > 0 {
		sb.WriteString("\nTomorrow's Prices:\n")
		writePriceList(&sb, pi.Tomorrow, unit)
	}

	sb.WriteString("\n")
	writePriceStats(&sb, pi, unit)

	return strings.TrimRight(sb.String(), "\n"), nil
}

func writePriceList(sb *strings.Builder, points []tibber.PricePoint, unit string) {
	for _, p := range points {
		level := p.Level
		if level == "" {
			level = "UNKNOWN"
		}
		fmt.Fprintf(sb, "%s: %s (%s)\n", p.StartsAt.Format("15:04"), fmtPrice(p.Total, unit), level)
	}
}

func writePriceStats(sb *strings.Builder, pi *tibber.PriceInfo, unit string) {
	stats := pi.Stats()

	sb.WriteString("\nToday's Price Statistics:\n")
	fmt.Fprintf(sb, "Maximum: %s\n", fmtPrice(stats.Max, unit))
	fmt.Fprintf(sb, "Average: %s\n", fmtPrice(stats.Avg, unit))
	fmt.Fprintf(sb, "Minimum: %s\n", fmtPrice(stats.Min, unit))
	sb.WriteString("\nAverage Prices by Period:\n")
	fmt.Fprintf(sb, "Night (00-08): %s\n", fmtPrice(stats.Night, unit))
	fmt.Fprintf(sb, "Day (08-20): %s\n", fmtPrice(stats.Day, unit))
	fmt.Fprintf(sb, "Evening (20-24): %s\n", fmtPrice(stats.Evening, unit))
}
