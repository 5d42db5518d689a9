package energytoolbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/germanamz/tibber-mcp/pkg/tools/toolbox"
)

func (t *Toolbox) listHomesTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "list-homes",
		Description: "List all Tibber homes and their basic information",
		InputSchema: json.RawMessage(`{"type":"object","properties":{}}`),
		Handler:     t.handleListHomes,
	}
}

func (t *Toolbox) handleListHomes(ctx context.Context, _ json.RawMessage) (string, error) {
	up, err := t.acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("list-homes: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Available Tibber Homes:\n")

	for _, home := range up.Homes() {
		m := home.Metering()

		fmt.Fprintf(&sb, "\nHome: %s\n", home.Name())
		fmt.Fprintf(&sb, "ID: %s\n", home.ID())
		fmt.Fprintf(&sb, "Address: %s\n", orNA(home.Address()))
		fmt.Fprintf(&sb, "Country: %s\n", orNA(home.Country()))
		fmt.Fprintf(&sb, "Currency: %s\n", orNA(home.Currency()))
		fmt.Fprintf(&sb, "Has Active Subscription: %t\n", home.HasActiveSubscription())
		fmt.Fprintf(&sb, "Has Real-time Consumption: %t\n", home.HasRealTime())
		fmt.Fprintf(&sb, "Has Production: %t\n", home.HasProduction())
		sb.WriteString("Metering Point Data:\n")
		fmt.Fprintf(&sb, "  - Grid Company: %s\n", orNA(m.GridCompany))
		if m.EstimatedAnnualConsumption != nil {
			fmt.Fprintf(&sb, "  - Estimated Annual Consumption: %s kWh\n", fmtNum(m.EstimatedAnnualConsumption))
		} else {
			sb.WriteString("  - Estimated Annual Consumption: N/A\n")
		}
		fmt.Fprintf(&sb, "  - Energy Tax Type: %s\n", orNA(m.EnergyTaxType))
		fmt.Fprintf(&sb, "  - VAT Type: %s\n", orNA(m.VATType))
	}

	return strings.TrimRight(sb.String(), "\n"), nil
}
