package assembler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"specado/internal/jsonvalue"
	"specado/internal/lossiness"
	"specado/internal/strictness"
)

func TestAssembleCopiesPayloadAndSummarizesTracker(t *testing.T) {
	payload := jsonvalue.ObjectOf(jsonvalue.NewOrderedObject())
	payload.Object().Set("model", jsonvalue.String("acme-large"))

	tr := lossiness.NewTracker()
	tr.Record(lossiness.RecordInput{Code: lossiness.CodeClamp, Severity: lossiness.SeverityInfo})

	meta := Metadata{
		ProviderName:   "acme",
		ModelID:        "acme-large",
		StrictMode:     strictness.Warn,
		DurationMicros: 1234,
		PipelineStageTimings: StageTimings{
			Validator: 10, PreValidate: 20, Transform: 30, Map: 40, Resolve: 50, Flags: 60,
		},
	}

	result := Assemble(payload, tr, meta)

	require.True(t, result.ProviderRequestJSON.IsObject())
	v, ok := result.ProviderRequestJSON.Object().Get("model")
	require.True(t, ok)
	assert.Equal(t, "acme-large", v.String_())

	assert.Equal(t, 1, result.Summary.Total)
	require.Len(t, result.Items, 1)
	assert.NotEmpty(t, result.AuditReport)
	assert.Equal(t, meta, result.Metadata)
}

func TestAssembleWithNoLossinessItemsStillSucceeds(t *testing.T) {
	payload := jsonvalue.NewObject()
	tr := lossiness.NewTracker()

	result := Assemble(payload, tr, Metadata{ProviderName: "acme", ModelID: "m"})
	assert.Equal(t, 0, result.Summary.Total)
	assert.Empty(t, result.Items)
}
