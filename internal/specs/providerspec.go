package specs

import (
	"encoding/json"
	"fmt"

	"specado/internal/jsonvalue"
	"specado/internal/transform"
)

// InputModes declares which input shapes a model accepts.
type InputModes struct {
	Messages   bool            `json:"messages"`
	SingleText bool            `json:"single_text"`
	Images     bool            `json:"images"`
	Modalities map[string]bool `json:"modalities,omitempty"`
}

// Tooling declares a model's function/tool-calling capabilities.
type Tooling struct {
	ToolsSupported              bool             `json:"tools_supported"`
	ParallelToolCallsDefault    bool             `json:"parallel_tool_calls_default"`
	CanDisableParallelToolCalls bool             `json:"can_disable_parallel_tool_calls"`
	DisableSwitch               string           `json:"disable_switch,omitempty"`
	Extensions                  *jsonvalue.Value `json:"extensions,omitempty"`
}

// JSONOutput declares how a model supports structured/JSON output.
type JSONOutput struct {
	NativeParam bool   `json:"native_param"`
	Strategy    string `json:"strategy,omitempty"`
}

// ProviderLimits are the provider-imposed byte ceilings referenced by the
// validator and pre-validator.
type ProviderLimits struct {
	MaxToolSchemaBytes   int `json:"max_tool_schema_bytes,omitempty"`
	MaxSystemPromptBytes int `json:"max_system_prompt_bytes,omitempty"`
}

// Constraints holds the model's structural constraints (spec section 3.2):
// system prompt placement, unknown-field policy, mutually exclusive
// parameter groups and their resolution order, and byte limits.
type Constraints struct {
	SystemPromptLocation        string     `json:"system_prompt_location,omitempty"`
	ForbidUnknownTopLevelFields bool       `json:"forbid_unknown_top_level_fields"`
	MutuallyExclusive           [][]string `json:"mutually_exclusive,omitempty"`
	ResolutionPreferences       []string   `json:"resolution_preferences,omitempty"`
	Limits                      ProviderLimits `json:"limits,omitempty"`
}

// PathMapping is one canonical-to-provider path pair. Declaration order is
// significant (spec section 4.7) and is preserved by Mappings'
// UnmarshalJSON rather than by map iteration.
type PathMapping struct {
	Canonical string
	Provider  string
}

// FlagRule is one named provider flag and its raw configuration. Name
// identifies the behavior (see internal/flags); Raw carries whatever
// configuration that behavior needs — a bare boolean for the two built-in
// flags, or {"path":...,"value":...} for an arbitrary static-value flag.
type FlagRule struct {
	Name string
	Raw  jsonvalue.Value
}

// Mappings holds the ordered path-mapping table and flag rules.
type Mappings struct {
	Paths []PathMapping
	Flags []FlagRule
}

// UnmarshalJSON decodes "paths" and "flags" from their wire shape (JSON
// objects keyed by canonical path / flag name) into order-preserving
// slices, using jsonvalue's ordered object decoder instead of Go's
// unordered map[string]any so declaration order survives into the pipeline
// (spec section 4.7, 4.9).
func (m *Mappings) UnmarshalJSON(data []byte) error {
	var raw struct {
		Paths json.RawMessage `json:"paths"`
		Flags json.RawMessage `json:"flags"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode mappings: %w", err)
	}
	if len(raw.Paths) > 0 {
		val, err := jsonvalue.Parse(raw.Paths)
		if err != nil {
			return fmt.Errorf("decode mappings.paths: %w", err)
		}
		if !val.IsObject() {
			return fmt.Errorf("mappings.paths must be an object")
		}
		obj := val.Object()
		for _, key := range obj.Keys() {
			v, _ := obj.Get(key)
			if !v.IsString() {
				return fmt.Errorf("mappings.paths[%q] must be a string provider path", key)
			}
			m.Paths = append(m.Paths, PathMapping{Canonical: key, Provider: v.String_()})
		}
	}
	if len(raw.Flags) > 0 {
		val, err := jsonvalue.Parse(raw.Flags)
		if err != nil {
			return fmt.Errorf("decode mappings.flags: %w", err)
		}
		if !val.IsObject() {
			return fmt.Errorf("mappings.flags must be an object")
		}
		obj := val.Object()
		for _, key := range obj.Keys() {
			v, _ := obj.Get(key)
			m.Flags = append(m.Flags, FlagRule{Name: key, Raw: v})
		}
	}
	return nil
}

// MarshalJSON re-encodes Mappings preserving slice order as object key
// order, so a decode-then-encode round trip is byte-stable.
func (m Mappings) MarshalJSON() ([]byte, error) {
	paths := jsonvalue.NewOrderedObject()
	for _, p := range m.Paths {
		paths.Set(p.Canonical, jsonvalue.String(p.Provider))
	}
	flags := jsonvalue.NewOrderedObject()
	for _, f := range m.Flags {
		flags.Set(f.Name, f.Raw)
	}
	out := struct {
		Paths jsonvalue.Value `json:"paths"`
		Flags jsonvalue.Value `json:"flags"`
	}{
		Paths: jsonvalue.ObjectOf(paths),
		Flags: jsonvalue.ObjectOf(flags),
	}
	return json.Marshal(out)
}

// Endpoint is one named HTTP endpoint, consumed by the external HTTP
// collaborator rather than by the translation core itself.
type Endpoint struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Protocol string `json:"protocol"`
}

// ModelSpec describes one model's capabilities and translation rules.
type ModelSpec struct {
	ID                    string              `json:"id"`
	Aliases               []string            `json:"aliases,omitempty"`
	Family                string              `json:"family,omitempty"`
	Endpoints             map[string]Endpoint `json:"endpoints,omitempty"`
	InputModes            InputModes       `json:"input_modes"`
	Tooling               Tooling          `json:"tooling"`
	JSONOutput            JSONOutput       `json:"json_output"`
	Parameters            *jsonvalue.Value `json:"parameters,omitempty"`
	Constraints           Constraints      `json:"constraints"`
	Mappings              Mappings         `json:"mappings"`
	TransformRules        []transform.Rule `json:"transform_rules,omitempty"`
	ResponseNormalization *jsonvalue.Value `json:"response_normalization,omitempty"`
}

// MatchesID reports whether id matches this model's canonical id or any
// alias, grounding the alias-aware model_id resolution supplemented from
// the original Rust implementation's provider_discovery module.
func (m ModelSpec) MatchesID(id string) bool {
	if m.ID == id {
		return true
	}
	for _, alias := range m.Aliases {
		if alias == id {
			return true
		}
	}
	return false
}

// ProviderInfo holds the provider-level metadata surrounding a ProviderSpec's
// model list.
type ProviderInfo struct {
	Name    string            `json:"name"`
	BaseURL string            `json:"base_url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Auth    *jsonvalue.Value  `json:"auth,omitempty"`
}

// ProviderSpec is the declarative capability document for one provider
// (spec section 3.2).
type ProviderSpec struct {
	SpecVersion string       `json:"spec_version"`
	Provider    ProviderInfo `json:"provider"`
	Models      []ModelSpec  `json:"models"`
}

// FindModel resolves a model_id against ProviderSpec.Models, matching
// either the canonical id or a declared alias. The first matching model in
// declaration order wins.
func (ps *ProviderSpec) FindModel(modelID string) (*ModelSpec, bool) {
	for i := range ps.Models {
		if ps.Models[i].MatchesID(modelID) {
			return &ps.Models[i], true
		}
	}
	return nil, false
}

// DecodeProviderSpec parses raw JSON bytes into a ProviderSpec.
func DecodeProviderSpec(data []byte) (*ProviderSpec, error) {
	var ps ProviderSpec
	if err := json.Unmarshal(data, &ps); err != nil {
		return nil, fmt.Errorf("decode provider_spec: %w", err)
	}
	return &ps, nil
}
