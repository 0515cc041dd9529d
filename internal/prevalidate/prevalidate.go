// Package prevalidate implements the pre-validator (C5): a single read-only
// walk of a PromptSpec against the chosen model's declared capabilities,
// run before any payload value is written.
package prevalidate

import (
	"fmt"

	"specado/internal/jsonvalue"
	"specado/internal/lossiness"
	"specado/internal/path"
	"specado/internal/specs"
	"specado/internal/strictness"
)

// Plan carries the decisions made during pre-validation that later stages
// (notably the flag applicator, C9) need to act on.
type Plan struct {
	EmulateJSON  bool
	JSONStrategy string
}

// Run walks prompt once against model under mode, recording lossiness items
// onto tr. Under Coerce mode, an out-of-range sampling/limits value is also
// clamped in place on uniform, so the mapper projects the clamped value
// rather than the original one; under Warn/Strict, uniform is left
// untouched and the item's Before/After are annotation only. The returned
// Plan feeds C9's emulate_json_via_system_prompt flag.
func Run(prompt *specs.PromptSpec, model *specs.ModelSpec, mode strictness.Mode, uniform *jsonvalue.Value, tr *lossiness.Tracker) Plan {
	h := tr.BeginTiming()
	defer tr.EndTiming(h)

	var plan Plan

	if !modelClassSupported(prompt.ModelClass, model.InputModes) {
		recordUnsupported(tr, mode, specs.PathModelClass, fmt.Sprintf("model_class %s is not among the model's input_modes", prompt.ModelClass))
	}

	if prompt.Sampling != nil {
		checkRange(tr, mode, uniform, specs.PathSamplingTemperature, prompt.Sampling.Temperature, 0, 2)
		checkRange(tr, mode, uniform, specs.PathSamplingTopP, prompt.Sampling.TopP, 0, 1)
		checkMin(tr, mode, uniform, specs.PathSamplingTopK, intToFloat(prompt.Sampling.TopK), 1)
		checkRange(tr, mode, uniform, specs.PathSamplingFreqPenalty, prompt.Sampling.FrequencyPenalty, -2, 2)
		checkRange(tr, mode, uniform, specs.PathSamplingPresPenalty, prompt.Sampling.PresencePenalty, -2, 2)
	}
	if prompt.Limits != nil {
		checkMin(tr, mode, uniform, specs.PathLimitsMaxOutput, intToFloat(prompt.Limits.MaxOutputTokens), 1)
		checkMin(tr, mode, uniform, specs.PathLimitsReasoning, intToFloat(prompt.Limits.ReasoningTokens), 1)
		checkMin(tr, mode, uniform, specs.PathLimitsMaxPrompt, intToFloat(prompt.Limits.MaxPromptTokens), 1)
	}

	if len(prompt.Tools) > 0 && !model.Tooling.ToolsSupported {
		recordUnsupported(tr, mode, specs.PathTools, "tools requested but the model does not support tool calling")
	}

	if prompt.ResponseFormat != nil && prompt.ResponseFormat.Kind != "text" && !model.JSONOutput.NativeParam {
		plan.EmulateJSON = true
		plan.JSONStrategy = model.JSONOutput.Strategy
	}

	if model.Constraints.Limits.MaxSystemPromptBytes > 0 {
		if sp, ok := firstSystemPromptContent(prompt); ok && len(sp) > model.Constraints.Limits.MaxSystemPromptBytes {
			tr.Record(lossiness.RecordInput{
				Code:          lossiness.CodePerformanceImpact,
				Path:          specs.PathMessages,
				Message:       "system prompt exceeds the model's declared byte limit",
				Severity:      lossiness.SeverityWarning,
				OperationType: lossiness.OpTypeConversion,
				Metadata:      map[string]string{"limit_bytes": fmt.Sprint(model.Constraints.Limits.MaxSystemPromptBytes), "actual_bytes": fmt.Sprint(len(sp))},
			})
		}
	}
	if model.Constraints.Limits.MaxToolSchemaBytes > 0 {
		for _, tool := range prompt.Tools {
			size := estimateJSONSize(tool.JSONSchema)
			if size > model.Constraints.Limits.MaxToolSchemaBytes {
				tr.Record(lossiness.RecordInput{
					Code:          lossiness.CodePerformanceImpact,
					Path:          fmt.Sprintf("%s[%s]", specs.PathTools, tool.Name),
					Message:       "tool schema exceeds the model's declared byte limit",
					Severity:      lossiness.SeverityWarning,
					OperationType: lossiness.OpTypeConversion,
					Metadata:      map[string]string{"limit_bytes": fmt.Sprint(model.Constraints.Limits.MaxToolSchemaBytes), "actual_bytes": fmt.Sprint(size)},
				})
			}
		}
	}

	return plan
}

func recordUnsupported(tr *lossiness.Tracker, mode strictness.Mode, path, message string) {
	sev := strictness.AdjustSeverity(mode, lossiness.CodeUnsupported, lossiness.SeverityError)
	tr.Record(lossiness.RecordInput{
		Code:     lossiness.CodeUnsupported,
		Path:     path,
		Message:  message,
		Severity: sev,
	})
}

func checkRange(tr *lossiness.Tracker, mode strictness.Mode, uniform *jsonvalue.Value, canonicalPath string, v *float64, min, max float64) {
	if v == nil || (*v >= min && *v <= max) {
		return
	}
	recordClamp(tr, mode, uniform, canonicalPath, *v, min, max)
}

func checkMin(tr *lossiness.Tracker, mode strictness.Mode, uniform *jsonvalue.Value, canonicalPath string, v *float64, min float64) {
	if v == nil || *v >= min {
		return
	}
	recordClamp(tr, mode, uniform, canonicalPath, *v, min, *v)
}

func recordClamp(tr *lossiness.Tracker, mode strictness.Mode, uniform *jsonvalue.Value, canonicalPath string, v, min, max float64) {
	before := jsonvalue.Number(v)
	var after *jsonvalue.Value
	var sev lossiness.Severity
	switch mode {
	case strictness.Coerce:
		result := strictness.Clamp(v, min, max)
		a := jsonvalue.Number(result.Value)
		after = &a
		sev = strictness.AdjustSeverity(mode, lossiness.CodeClamp, lossiness.SeverityInfo)
		writeClampedValue(uniform, canonicalPath, a)
	case strictness.Strict:
		sev = strictness.AdjustSeverity(mode, lossiness.CodeClamp, lossiness.SeverityError)
	default: // Warn
		sev = strictness.AdjustSeverity(mode, lossiness.CodeClamp, lossiness.SeverityInfo)
	}
	tr.Record(lossiness.RecordInput{
		Code:          lossiness.CodeClamp,
		Path:          canonicalPath,
		Message:       fmt.Sprintf("value %g outside declared range [%g, %g]", v, min, max),
		Before:        &before,
		After:         after,
		Severity:      sev,
		OperationType: lossiness.OpClamp,
	})
}

// writeClampedValue overwrites canonicalPath in uniform with the clamped
// value so the mapper (C7) later projects the coerced number rather than
// the original out-of-range one (spec section 8 scenario E). uniform
// already has this path populated from PromptSpec.ToValue, so the write
// only ever replaces an existing leaf.
func writeClampedValue(uniform *jsonvalue.Value, canonicalPath string, clamped jsonvalue.Value) {
	p, err := path.Parse(canonicalPath)
	if err != nil {
		return
	}
	_, _, _ = path.Write(uniform, p, clamped)
}

func intToFloat(p *int) *float64 {
	if p == nil {
		return nil
	}
	f := float64(*p)
	return &f
}

func modelClassSupported(mc specs.ModelClass, im specs.InputModes) bool {
	switch mc {
	case specs.ModelClassChat, specs.ModelClassReasoningChat, specs.ModelClassRAGChat:
		return im.Messages
	case specs.ModelClassVisionChat, specs.ModelClassMultimodalChat:
		return im.Messages && im.Images
	case specs.ModelClassAudioChat:
		return im.Messages && im.Modalities["audio"]
	case specs.ModelClassCompletion, specs.ModelClassEmbedding:
		return im.SingleText || im.Messages
	default:
		return false
	}
}

func firstSystemPromptContent(prompt *specs.PromptSpec) (string, bool) {
	if len(prompt.Messages) == 0 || prompt.Messages[0].Role != specs.RoleSystem {
		return "", false
	}
	return prompt.Messages[0].Content, true
}

func estimateJSONSize(v jsonvalue.Value) int {
	data, err := v.MarshalJSON()
	if err != nil {
		return 0
	}
	return len(data)
}
