package exporter

import (
	"strconv"

	"ejiview/pkg/contracts/domain"
)

// formatValue renders a metric value for CSV output; missing becomes ""
func formatValue(v domain.Value) string {
	if v.IsMissing() {
		return ""
	}
	return formatFloat(v.V)
}

// formatFloat uses the shortest representation that round-trips
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
