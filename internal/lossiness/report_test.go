package lossiness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuditReportRendersOneLinePerItemPlusSummary(t *testing.T) {
	tr := NewTracker()
	tr.Record(RecordInput{
		Code:     CodeClamp,
		Path:     "sampling.temperature",
		Message:  "clamped to model maximum",
		Severity: SeverityWarning,
	})
	tr.Record(RecordInput{
		Code:     CodeDrop,
		Path:     "tools",
		Message:  "provider does not support tool calling",
		Severity: SeverityError,
	})

	report := tr.AuditReport()
	assert.Contains(t, report, "Clamp at sampling.temperature: clamped to model maximum")
	assert.Contains(t, report, "Drop at tools: provider does not support tool calling")
	assert.Contains(t, report, "total=2")
	assert.Contains(t, report, "max_severity=Error")
}

func TestAuditReportEmptyTrackerStillPrintsSummary(t *testing.T) {
	tr := NewTracker()
	report := tr.AuditReport()
	assert.Contains(t, report, "total=0")
}
