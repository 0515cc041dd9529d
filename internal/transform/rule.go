// Package transform implements the value transformer (C6): a declarative
// pipeline of rules that rewrite the uniform working value in place before
// the path mapper projects it onto the provider payload.
package transform

import (
	"encoding/json"
	"fmt"

	"specado/internal/jsonvalue"
)

// Direction is carried for fidelity with the declarative rule shape; Run
// does not consult it and applies every rule in the uniform-to-provider
// direction.
type Direction string

const (
	Forward       Direction = "Forward"
	Reverse       Direction = "Reverse"
	Bidirectional Direction = "Bidirectional"
)

// Kind identifies which transformation a Rule applies.
type Kind string

const (
	KindTypeConversion Kind = "TypeConversion"
	KindEnumMapping    Kind = "EnumMapping"
	KindUnitConversion Kind = "UnitConversion"
	KindFieldRename    Kind = "FieldRename"
	KindDefaultValue   Kind = "DefaultValue"
	KindConditional    Kind = "Conditional"
	KindCustom         Kind = "Custom"
)

// ConditionOp is the comparison a Condition applies to the value read at
// its Path.
type ConditionOp string

const (
	OpExists    ConditionOp = "exists"
	OpNotExists ConditionOp = "not_exists"
	OpEquals    ConditionOp = "equals"
	OpNotEquals ConditionOp = "not_equals"
)

// Condition is a predicate over the current uniform working value,
// evaluated before a rule (or conditional branch) is applied.
type Condition struct {
	Path  string          `json:"path"`
	Op    ConditionOp     `json:"op"`
	Value jsonvalue.Value `json:"value,omitempty"`
}

// TypeConversionParams names the target primitive type. Rounding for
// number-to-integer conversions always truncates toward zero; the
// truncated amount is recorded as rule metadata.
type TypeConversionParams struct {
	To string `json:"to"` // "string", "number", "integer"
}

// EnumMappingParams maps input strings to output strings. Order is
// immaterial — this is a value lookup, not a declaration-ordered list.
type EnumMappingParams struct {
	Mapping map[string]string `json:"mapping"`
}

// UnitConversionParams scales and offsets a numeric value: output = input*Scale + Offset.
type UnitConversionParams struct {
	Scale  float64 `json:"scale"`
	Offset float64 `json:"offset"`
}

// DefaultValueParams supplies the literal written when SourcePath is absent.
type DefaultValueParams struct {
	Value jsonvalue.Value `json:"value"`
}

// ConditionalBranch is one arm of a Conditional transformation.
type ConditionalBranch struct {
	Condition      Condition       `json:"condition"`
	Transformation *Transformation `json:"transformation"`
}

// ConditionalParams evaluates each branch's condition in order and applies
// the first whose condition holds; if none hold, the rule is a no-op.
type ConditionalParams struct {
	Branches []ConditionalBranch `json:"branches"`
}

// Transformation is a tagged union over the seven kinds named in spec
// section 4.6; exactly the field matching Kind is populated. Its wire
// shape is a "kind" discriminator plus one nested object named for the
// matching kind, in the manner of the oneof fields decoded in package specs.
type Transformation struct {
	Kind           Kind
	TypeConversion *TypeConversionParams
	EnumMapping    *EnumMappingParams
	UnitConversion *UnitConversionParams
	DefaultValue   *DefaultValueParams
	Conditional    *ConditionalParams
}

func (t Transformation) MarshalJSON() ([]byte, error) {
	raw := map[string]any{"kind": t.Kind}
	switch t.Kind {
	case KindTypeConversion:
		raw["type_conversion"] = t.TypeConversion
	case KindEnumMapping:
		raw["enum_mapping"] = t.EnumMapping
	case KindUnitConversion:
		raw["unit_conversion"] = t.UnitConversion
	case KindDefaultValue:
		raw["default_value"] = t.DefaultValue
	case KindConditional:
		raw["conditional"] = t.Conditional
	}
	return json.Marshal(raw)
}

func (t *Transformation) UnmarshalJSON(data []byte) error {
	var raw struct {
		Kind           Kind                   `json:"kind"`
		TypeConversion *TypeConversionParams  `json:"type_conversion"`
		EnumMapping    *EnumMappingParams     `json:"enum_mapping"`
		UnitConversion *UnitConversionParams  `json:"unit_conversion"`
		DefaultValue   *DefaultValueParams    `json:"default_value"`
		Conditional    *ConditionalParams     `json:"conditional"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode transformation: %w", err)
	}
	t.Kind = raw.Kind
	t.TypeConversion = raw.TypeConversion
	t.EnumMapping = raw.EnumMapping
	t.UnitConversion = raw.UnitConversion
	t.DefaultValue = raw.DefaultValue
	t.Conditional = raw.Conditional
	switch t.Kind {
	case KindFieldRename, KindCustom, "":
		// no nested params
	case KindTypeConversion, KindEnumMapping, KindUnitConversion, KindDefaultValue, KindConditional:
	default:
		return fmt.Errorf("unknown transformation kind %q", t.Kind)
	}
	return nil
}

// Rule is one entry of the transformer pipeline.
type Rule struct {
	ID             string         `json:"id"`
	Priority       int            `json:"priority,omitempty"`
	SourcePath     string         `json:"source_path"`
	TargetPath     string         `json:"target_path,omitempty"` // defaults to SourcePath when empty
	Direction      Direction      `json:"direction,omitempty"`
	Condition      *Condition     `json:"condition,omitempty"`
	Transformation Transformation `json:"transformation"`
	Optional       bool           `json:"optional,omitempty"`
}

func (r Rule) targetPath() string {
	if r.TargetPath == "" {
		return r.SourcePath
	}
	return r.TargetPath
}
