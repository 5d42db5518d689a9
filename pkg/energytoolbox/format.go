package energytoolbox

import (
	"fmt"
	"strconv"
	"time"
)

// naText stands in for any value the upstream left unset.
const naText = "N/A"

// fmtNum renders an optional number without trailing zeros, or N/A.
func fmtNum(v *float64) string {
	if v == nil {
		return naText
	}

	return strconv.FormatFloat(*v, 'g', -1, 64)
}

// fmtUnit renders an optional number with a fixed number of decimals and a
// unit, or N/A.
func fmtUnit(v *float64, decimals int, unit string) string {
	if v == nil {
		return naText
	}

	s := strconv.FormatFloat(*v, 'f', decimals, 64)
	if unit == "" {
		return s
	}

	return s + " " + unit
}

// fmtPrice renders a price with three decimals and the home's price unit.
func fmtPrice(total float64, unit string) string {
	return fmt.Sprintf("%.3f %s", total, unit)
}

// fmtUTC renders a timestamp in the fixed UTC minute format used across
// all history listings.
func fmtUTC(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04") + " UTC"
}

// orNA substitutes N/A for empty strings.
func orNA(s string) string {
	if s == "" {
		return naText
	}

	return s
}
