package planner

import (
	"fmt"
	"strings"

	"github.com/gridguard/leop-server/internal/domain"
)

// maxRenderedIntervals bounds the per-interval lines in the client response.
const maxRenderedIntervals = 10

// FormatPlan renders the client-facing response for a finished plan. The
// layout is a wire contract; do not reorder or reword lines.
func FormatPlan(location, region string, plan domain.Plan) string {
	var b strings.Builder

	fmt.Fprintf(&b, "=== Energy Plan for %s/%s ===\n", location, region)
	fmt.Fprintf(&b, "Entries: %d\n", len(plan.Intervals))
	fmt.Fprintf(&b, "Total Cost: %.2f SEK\n", plan.TotalCostSEK)
	fmt.Fprintf(&b, "Grid Import: %.2f kWh\n", plan.TotalImportKWh)
	fmt.Fprintf(&b, "Grid Export: %.2f kWh\n", plan.TotalExportKWh)
	b.WriteString("\nFirst 10 hours:\n")

	show := len(plan.Intervals)
	if show > maxRenderedIntervals {
		show = maxRenderedIntervals
	}
	for i := 0; i < show; i++ {
		iv := plan.Intervals[i]
		fmt.Fprintf(&b, "[%d] Production: %.2f kWh, Price: %.2f SEK/kWh, Action: %s\n",
			i, iv.ProductionKWh, iv.SpotPriceSEKKWh, iv.Action)
	}
	b.WriteString("\n")

	return b.String()
}
