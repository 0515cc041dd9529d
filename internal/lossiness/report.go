package lossiness

import (
	"fmt"
	"strings"
)

// AuditReport renders the tracked items as a human-readable, line-oriented
// report: one line per item in recorded order, plus a trailing summary
// line. This adds no semantic content beyond Items() — it exists purely
// for operators reading translation output on a terminal.
func (t *Tracker) AuditReport() string {
	items := t.Items()
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "[%s] %s at %s: %s", item.Severity, item.Code, item.Path, item.Message)
		if item.OperationType != "" {
			fmt.Fprintf(&b, " (op=%s)", item.OperationType)
		}
		if item.Before != nil {
			before, _ := item.Before.MarshalJSON()
			fmt.Fprintf(&b, " (before=%s", before)
			if item.After != nil {
				after, _ := item.After.MarshalJSON()
				fmt.Fprintf(&b, ", after=%s)", after)
			} else {
				b.WriteString(")")
			}
		} else if item.After != nil {
			after, _ := item.After.MarshalJSON()
			fmt.Fprintf(&b, " (after=%s)", after)
		}
		b.WriteString("\n")
	}

	summary := t.Summary()
	fmt.Fprintf(&b, "total=%d max_severity=%s\n", summary.Total, summary.MaxSeverity)
	return b.String()
}
