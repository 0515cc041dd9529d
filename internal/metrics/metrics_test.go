package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"specado/internal/assembler"
	"specado/internal/lossiness"
)

func TestObserveStagesRecordsEachStage(t *testing.T) {
	before := testutil.CollectAndCount(stageDuration)

	ObserveStages(assembler.StageTimings{
		Validator:   10,
		PreValidate: 20,
		Transform:   30,
		Map:         40,
		Resolve:     50,
		Flags:       60,
	})

	after := testutil.CollectAndCount(stageDuration)
	assert.Greater(t, after, before)
}

func TestObserveOutcomeIncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(translateTotal.WithLabelValues("success"))
	ObserveOutcome("success")
	after := testutil.ToFloat64(translateTotal.WithLabelValues("success"))
	assert.Equal(t, before+1, after)
}

func TestObserveLossinessIncrementsPerCodeAndSeverity(t *testing.T) {
	before := testutil.ToFloat64(lossinessItemsTotal.WithLabelValues(string(lossiness.CodeClamp), string(lossiness.SeverityWarning)))

	ObserveLossiness([]lossiness.Item{
		{Code: lossiness.CodeClamp, Severity: lossiness.SeverityWarning},
		{Code: lossiness.CodeClamp, Severity: lossiness.SeverityWarning},
	})

	after := testutil.ToFloat64(lossinessItemsTotal.WithLabelValues(string(lossiness.CodeClamp), string(lossiness.SeverityWarning)))
	assert.Equal(t, before+2, after)
}
