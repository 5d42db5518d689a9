package energytoolbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/germanamz/tibber-mcp/pkg/realtime"
	"github.com/germanamz/tibber-mcp/pkg/tools/toolbox"
)

func (t *Toolbox) realtimeTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "get-realtime",
		Description: "Get latest real-time power readings from a home",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"home_id":{"type":"string","description":"The Tibber home ID"}},"required":["home_id"]}`),
		Handler:     t.handleRealtime,
	}
}

func (t *Toolbox) handleRealtime(ctx context.Context, input json.RawMessage) (string, error) {
	var in homeInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("get-realtime: invalid input: %w", err)
	}

	home, notFound, err := t.lookup(ctx, in.HomeID)
	if err != nil {
		return "", fmt.Errorf("get-realtime: %w", err)
	}
	if notFound != "" {
		return notFound, nil
	}

	t.log.Debug().Str("home", home.ID()).Dur("timeout", t.rtTimeout).Msg("awaiting live measurement")

	live, err := realtime.Reading(ctx, home, t.rtTimeout)
	switch {
	case errors.Is(err, realtime.ErrNotCapable):
		return "This home does not have real-time monitoring capability", nil
	case errors.Is(err, realtime.ErrTimeout):
		return fmt.Sprintf("No real-time measurement arrived within %s", t.rtTimeout), nil
	case errors.Is(err, realtime.ErrNoData):
		return "No real-time data received", nil
	case err != nil:
		return "", fmt.Errorf("get-realtime: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Real-time Power Reading:\n")

	currency := ""
	if live.Currency != nil {
		currency = *live.Currency
	}

	timestamp := naText
	if live.Timestamp != nil {
		timestamp = *live.Timestamp
	}

	fmt.Fprintf(&sb, "\nTimestamp: %s\n", timestamp)
	fmt.Fprintf(&sb, "Power: %s W\n", fmtNum(live.Power))
	fmt.Fprintf(&sb, "Accumulated Consumption: %s kWh\n", fmtNum(live.AccumulatedConsumption))
	fmt.Fprintf(&sb, "Accumulated Cost: %s %s\n", fmtNum(live.AccumulatedCost), currency)
	sb.WriteString("\nPower Details:\n")
	fmt.Fprintf(&sb, "Average Power: %s W\n", fmtNum(live.AveragePower))
	fmt.Fprintf(&sb, "Min Power: %s W\n", fmtNum(live.MinPower))
	fmt.Fprintf(&sb, "Max Power: %s W\n", fmtNum(live.MaxPower))
	sb.WriteString("\nVoltage Readings:\n")
	fmt.Fprintf(&sb, "Phase 1: %s V\n", fmtNum(live.VoltagePhase1))
	fmt.Fprintf(&sb, "Phase 2: %s V\n", fmtNum(live.VoltagePhase2))
	fmt.Fprintf(&sb, "Phase 3: %s V\n", fmtNum(live.VoltagePhase3))
	sb.WriteString("\nCurrent Readings:\n")
	fmt.Fprintf(&sb, "Phase 1: %s A\n", fmtNum(live.CurrentL1))
	fmt.Fprintf(&sb, "Phase 2: %s A\n", fmtNum(live.CurrentL2))
	fmt.Fprintf(&sb, "Phase 3: %s A\n", fmtNum(live.CurrentL3))
	fmt.Fprintf(&sb, "\nPower Factor: %s\n", fmtNum(live.PowerFactor))
	fmt.Fprintf(&sb, "Signal Strength: %s %%", fmtNum(live.SignalStrength))

	return sb.String(), nil
}
