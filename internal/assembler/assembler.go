// Package assembler implements the result assembler (C10): combines the
// finished provider payload with the tracker's lossiness report and
// pipeline metadata into a single TranslationResult value.
package assembler

import (
	"specado/internal/jsonvalue"
	"specado/internal/lossiness"
	"specado/internal/strictness"
)

// StageTimings records each named pipeline stage's elapsed microseconds.
type StageTimings struct {
	Validator   int64
	PreValidate int64
	Transform   int64
	Map         int64
	Resolve     int64
	Flags       int64
}

// Metadata is the translation's non-payload, non-lossiness output (spec
// section 3.4, 6.1).
type Metadata struct {
	ProviderName         string
	ModelID              string
	StrictMode           strictness.Mode
	DurationMicros       int64
	PipelineStageTimings StageTimings
}

// Result is the TranslationResult value (spec section 3.4).
type Result struct {
	ProviderRequestJSON jsonvalue.Value
	Summary             lossiness.Summary
	Items               []lossiness.Item
	AuditReport         string
	Metadata            Metadata
}

// Assemble copies payload as ProviderRequestJSON and reads the tracker's
// summary and audit report. The caller supplies metadata, having already
// measured duration_micros and the per-stage timings.
func Assemble(payload jsonvalue.Value, tr *lossiness.Tracker, meta Metadata) Result {
	return Result{
		ProviderRequestJSON: payload,
		Summary:             tr.Summary(),
		Items:               tr.Items(),
		AuditReport:         tr.AuditReport(),
		Metadata:            meta,
	}
}
