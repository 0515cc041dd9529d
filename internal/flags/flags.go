// Package flags implements the flag applicator (C9): small declarative
// per-flag actions consumed from a model's mappings.flags table, in
// flag-declaration order.
package flags

import (
	"fmt"

	"specado/internal/jsonvalue"
	"specado/internal/lossiness"
	"specado/internal/path"
	"specado/internal/prevalidate"
	"specado/internal/specs"
)

const (
	flagEmulateJSON       = "emulate_json_via_system_prompt"
	flagSerializeParallel = "serialize_parallel_tool_calls"
)

// writeLog tracks, per provider path, which flag last wrote there and with
// what value — used to detect the later-flag-wins collision spec section
// 4.9 describes.
type writeLog struct {
	flag  map[string]string
	value map[string]jsonvalue.Value
}

func newWriteLog() *writeLog {
	return &writeLog{flag: map[string]string{}, value: map[string]jsonvalue.Value{}}
}

// Run applies model.Mappings.Flags in declaration order against payload.
func Run(prompt *specs.PromptSpec, model *specs.ModelSpec, plan prevalidate.Plan, payload *jsonvalue.Value, tr *lossiness.Tracker) error {
	h := tr.BeginTiming()
	defer tr.EndTiming(h)

	log := newWriteLog()
	for _, fr := range model.Mappings.Flags {
		switch fr.Name {
		case flagEmulateJSON:
			if err := applyEmulateJSON(fr.Name, plan, model, payload, tr, log); err != nil {
				return err
			}
		case flagSerializeParallel:
			if err := applySerializeParallel(fr.Name, prompt, model, payload, tr, log); err != nil {
				return err
			}
		default:
			if err := applyStaticFlag(fr, payload, tr, log); err != nil {
				return err
			}
		}
	}
	return nil
}

func applyEmulateJSON(flagName string, plan prevalidate.Plan, model *specs.ModelSpec, payload *jsonvalue.Value, tr *lossiness.Tracker, log *writeLog) error {
	if !plan.EmulateJSON {
		return nil
	}
	targetPath := providerPathFor(model, "system", "$.system")
	p, err := path.Parse(targetPath)
	if err != nil {
		return fmt.Errorf("flag %q target %q: %w", flagName, targetPath, err)
	}
	existing, found, err := path.Read(*payload, p)
	if err != nil {
		return fmt.Errorf("reading flag %q target: %w", flagName, err)
	}
	instruction := "Respond with valid JSON only, matching the requested schema."
	var merged jsonvalue.Value
	if found && existing.IsString() {
		merged = jsonvalue.String(existing.String_() + "\n\n" + instruction)
	} else {
		merged = jsonvalue.String(instruction)
	}
	before, hadOld, err := path.Write(payload, p, merged)
	if err != nil {
		return fmt.Errorf("writing flag %q: %w", flagName, err)
	}
	recordCollisionIfAny(log, targetPath, flagName, before, hadOld, merged, tr)

	tr.Record(lossiness.RecordInput{
		Code:          lossiness.CodeEmulate,
		Path:          targetPath,
		Message:       "emulated structured output via system prompt instruction",
		After:         &merged,
		Severity:      lossiness.SeverityWarning,
		OperationType: lossiness.OpEmulationApplied,
		Metadata:      map[string]string{"json_strategy": plan.JSONStrategy},
	})
	log.flag[targetPath] = flagName
	log.value[targetPath] = merged
	return nil
}

func applySerializeParallel(flagName string, prompt *specs.PromptSpec, model *specs.ModelSpec, payload *jsonvalue.Value, tr *lossiness.Tracker, log *writeLog) error {
	impliesParallel := len(prompt.Tools) > 1
	if model.Tooling.ParallelToolCallsDefault || !impliesParallel {
		return nil
	}
	if model.Tooling.CanDisableParallelToolCalls && model.Tooling.DisableSwitch != "" {
		p, err := path.Parse(model.Tooling.DisableSwitch)
		if err != nil {
			return fmt.Errorf("flag %q disable_switch %q: %w", flagName, model.Tooling.DisableSwitch, err)
		}
		value := jsonvalue.Bool(true)
		before, hadOld, err := path.Write(payload, p, value)
		if err != nil {
			return fmt.Errorf("writing flag %q: %w", flagName, err)
		}
		recordCollisionIfAny(log, model.Tooling.DisableSwitch, flagName, before, hadOld, value, tr)
		tr.Record(lossiness.RecordInput{
			Code:          lossiness.CodeEmulate,
			Path:          model.Tooling.DisableSwitch,
			Message:       "disabled parallel tool calls; provider does not support them natively",
			After:         &value,
			Severity:      lossiness.SeverityWarning,
			OperationType: lossiness.OpEmulationApplied,
		})
		log.flag[model.Tooling.DisableSwitch] = flagName
		log.value[model.Tooling.DisableSwitch] = value
		return nil
	}
	tr.Record(lossiness.RecordInput{
		Code:          lossiness.CodeEmulate,
		Path:          specs.PathTools,
		Message:       "dropped parallel tool call intent; provider cannot disable or serialize it",
		Severity:      lossiness.SeverityWarning,
		OperationType: lossiness.OpEmulationApplied,
	})
	return nil
}

// applyStaticFlag writes an arbitrary provider-named flag's static value,
// expressed as Raw = {"path": <provider path>, "value": <json value>}.
func applyStaticFlag(fr specs.FlagRule, payload *jsonvalue.Value, tr *lossiness.Tracker, log *writeLog) error {
	if !fr.Raw.IsObject() {
		return nil
	}
	pathVal, ok := fr.Raw.Object().Get("path")
	if !ok || !pathVal.IsString() {
		return nil
	}
	value, ok := fr.Raw.Object().Get("value")
	if !ok {
		return nil
	}
	p, err := path.Parse(pathVal.String_())
	if err != nil {
		return fmt.Errorf("flag %q path %q: %w", fr.Name, pathVal.String_(), err)
	}
	before, hadOld, err := path.Write(payload, p, value)
	if err != nil {
		return fmt.Errorf("writing flag %q: %w", fr.Name, err)
	}
	recordCollisionIfAny(log, pathVal.String_(), fr.Name, before, hadOld, value, tr)
	log.flag[pathVal.String_()] = fr.Name
	log.value[pathVal.String_()] = value
	return nil
}

func recordCollisionIfAny(log *writeLog, targetPath, flagName string, before jsonvalue.Value, hadOld bool, after jsonvalue.Value, tr *lossiness.Tracker) {
	earlierFlag, collided := log.flag[targetPath]
	if !collided {
		return
	}
	earlierValue := log.value[targetPath]
	tr.Record(lossiness.RecordInput{
		Code:          lossiness.CodeConflict,
		Path:          targetPath,
		Message:       fmt.Sprintf("flag %q overrode flag %q at the same provider path", flagName, earlierFlag),
		Before:        &earlierValue,
		After:         &after,
		Severity:      lossiness.SeverityWarning,
		Metadata:      map[string]string{"winner": flagName, "loser_flag": earlierFlag},
	})
	_ = before
	_ = hadOld
}



func providerPathFor(model *specs.ModelSpec, canonical, fallback string) string {
	for _, pm := range model.Mappings.Paths {
		if pm.Canonical == canonical {
			return pm.Provider
		}
	}
	return fallback
}
