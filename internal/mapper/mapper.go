// Package mapper implements the path mapper (C7): projects the
// (possibly transformed) uniform working value onto the provider payload
// using the model's declared path mapping table.
package mapper

import (
	"fmt"

	"specado/internal/jsonvalue"
	"specado/internal/lossiness"
	"specado/internal/path"
	"specado/internal/specs"
)

// Run projects uniform onto payload using model's mappings.paths, in
// mapping declaration order. required reports, for each canonical path,
// whether it is mandatory for the active model_class (used to distinguish
// a required-but-absent Drop from an optional skip).
func Run(uniform jsonvalue.Value, model *specs.ModelSpec, required map[string]bool, payload *jsonvalue.Value, tr *lossiness.Tracker) error {
	h := tr.BeginTiming()
	defer tr.EndTiming(h)

	relocatedMessages, err := relocateSystemPrompt(uniform, model, payload, tr)
	if err != nil {
		return err
	}

	mapped := make(map[string]bool, len(model.Mappings.Paths))
	for _, pm := range model.Mappings.Paths {
		mapped[pm.Canonical] = true
		if relocatedMessages && pm.Canonical == specs.PathMessages {
			continue
		}
		if err := applyMapping(uniform, pm, required[pm.Canonical], payload, tr); err != nil {
			return err
		}
	}

	reportUnmappedFields(uniform, mapped, tr)
	return nil
}

func applyMapping(uniform jsonvalue.Value, pm specs.PathMapping, isRequired bool, payload *jsonvalue.Value, tr *lossiness.Tracker) error {
	srcPath, err := path.Parse(pm.Canonical)
	if err != nil {
		return fmt.Errorf("mapping canonical path %q: %w", pm.Canonical, err)
	}
	val, found, err := path.Read(uniform, srcPath)
	if err != nil {
		return fmt.Errorf("reading %q: %w", pm.Canonical, err)
	}
	if !found {
		if isRequired {
			tr.Record(lossiness.RecordInput{
				Code:          lossiness.CodeDrop,
				Path:          pm.Canonical,
				Message:       "required uniform field absent",
				Severity:      lossiness.SeverityWarning,
				OperationType: lossiness.OpDrop,
			})
		}
		return nil
	}

	dstPath, err := path.Parse(pm.Provider)
	if err != nil {
		return fmt.Errorf("mapping provider path %q: %w", pm.Provider, err)
	}
	old, hadOld, err := path.Write(payload, dstPath, val)
	if err != nil {
		return fmt.Errorf("writing %q: %w", pm.Canonical, err)
	}

	if pm.Canonical != pm.Provider {
		before := val
		after := val
		tr.Record(lossiness.RecordInput{
			Code:          lossiness.CodeRelocate,
			Path:          pm.Canonical,
			Message:       fmt.Sprintf("mapped to provider path %q", pm.Provider),
			Before:        &before,
			After:         &after,
			Severity:      lossiness.SeverityInfo,
			OperationType: lossiness.OpFieldMove,
			Metadata:      map[string]string{"provider_path": pm.Provider},
		})
	} else if hadOld && !jsonvalue.Equal(old, val) {
		after := val
		tr.Record(lossiness.RecordInput{
			Code:          lossiness.CodeRelocate,
			Path:          pm.Canonical,
			Message:       "overwrote existing value at provider path",
			Before:        &old,
			After:         &after,
			Severity:      lossiness.SeverityInfo,
			OperationType: lossiness.OpFieldMove,
		})
	}
	return nil
}

// relocateSystemPrompt implements spec section 4.7 point 7: when the model
// requires a top-level system prompt location and the uniform messages
// list begins with a System message, move that message's content to the
// provider's system path and write the remaining messages directly,
// reporting whether it handled the messages mapping so Run can skip the
// ordinary mappings.paths entry for "messages".
func relocateSystemPrompt(uniform jsonvalue.Value, model *specs.ModelSpec, payload *jsonvalue.Value, tr *lossiness.Tracker) (bool, error) {
	if model.Constraints.SystemPromptLocation != "top_level" {
		return false, nil
	}
	msgsPath, _ := path.Parse(specs.PathMessages)
	msgsVal, found, err := path.Read(uniform, msgsPath)
	if err != nil || !found || !msgsVal.IsArray() || len(msgsVal.Array_()) == 0 {
		return false, nil
	}
	first := msgsVal.Array_()[0]
	if !first.IsObject() {
		return false, nil
	}
	roleVal, ok := first.Object().Get("role")
	if !ok || !roleVal.IsString() || roleVal.String_() != "System" {
		return false, nil
	}
	contentVal, ok := first.Object().Get("content")
	if !ok {
		return false, nil
	}

	messagesProviderPath := providerPathFor(model, specs.PathMessages, "$.messages")
	systemProviderPath := providerPathFor(model, "system", "$.system")

	dstPath, err := path.Parse(systemProviderPath)
	if err != nil {
		return false, fmt.Errorf("system prompt relocation target %q: %w", systemProviderPath, err)
	}
	if _, _, err := path.Write(payload, dstPath, contentVal); err != nil {
		return false, fmt.Errorf("writing relocated system prompt: %w", err)
	}

	remaining := jsonvalue.Array(msgsVal.Array_()[1:]...)
	msgsDst, err := path.Parse(messagesProviderPath)
	if err != nil {
		return false, fmt.Errorf("messages provider path %q: %w", messagesProviderPath, err)
	}
	if _, _, err := path.Write(payload, msgsDst, remaining); err != nil {
		return false, fmt.Errorf("writing messages after system relocation: %w", err)
	}

	before := first
	after := contentVal
	tr.Record(lossiness.RecordInput{
		Code:          lossiness.CodeRelocate,
		Path:          specs.PathMessages + "[0]",
		Message:       "relocated leading system message to provider top-level system path",
		Before:        &before,
		After:         &after,
		Severity:      lossiness.SeverityInfo,
		OperationType: lossiness.OpFieldMove,
		Metadata:      map[string]string{"provider_path": systemProviderPath},
	})
	return true, nil
}

func providerPathFor(model *specs.ModelSpec, canonical, fallback string) string {
	for _, pm := range model.Mappings.Paths {
		if pm.Canonical == canonical {
			return pm.Provider
		}
	}
	return fallback
}

// reportUnmappedFields records a Drop for every uniform top-level field
// that has neither a mappings.paths entry nor a known canonical meaning
// handled elsewhere in the pipeline (spec section 4.7 point 6).
func reportUnmappedFields(uniform jsonvalue.Value, mapped map[string]bool, tr *lossiness.Tracker) {
	if !uniform.IsObject() {
		return
	}
	obj := uniform.Object()
	for _, key := range obj.Keys() {
		if mapped[key] || key == specs.PathStrictMode || key == specs.PathModelClass {
			continue
		}
		v, _ := obj.Get(key)
		tr.Record(lossiness.RecordInput{
			Code:          lossiness.CodeDrop,
			Path:          key,
			Message:       fmt.Sprintf("field %q has no mapping entry for this model", key),
			Before:        &v,
			Severity:      lossiness.SeverityWarning,
			OperationType: lossiness.OpDrop,
		})
	}
}
