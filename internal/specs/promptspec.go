// Package specs defines the PromptSpec and ProviderSpec data model (spec
// sections 3.1–3.2) and the conversion between their typed Go
// representation and the generic jsonvalue tree the pipeline stages read
// and write through the path engine.
package specs

import (
	"encoding/json"
	"fmt"
	"strings"

	"specado/internal/jsonvalue"
	"specado/internal/strictness"
)

// ModelClass controls which PromptSpec fields are meaningful.
type ModelClass string

const (
	ModelClassChat           ModelClass = "Chat"
	ModelClassReasoningChat  ModelClass = "ReasoningChat"
	ModelClassVisionChat     ModelClass = "VisionChat"
	ModelClassAudioChat      ModelClass = "AudioChat"
	ModelClassMultimodalChat ModelClass = "MultimodalChat"
	ModelClassRAGChat        ModelClass = "RAGChat"
	ModelClassCompletion     ModelClass = "Completion"
	ModelClassEmbedding      ModelClass = "Embedding"
)

// IsChatFamily reports whether mc requires a non-empty messages list.
func (mc ModelClass) IsChatFamily() bool {
	switch mc {
	case ModelClassChat, ModelClassReasoningChat, ModelClassVisionChat,
		ModelClassAudioChat, ModelClassMultimodalChat, ModelClassRAGChat:
		return true
	default:
		return false
	}
}

// Role is a message's speaker.
type Role string

const (
	RoleSystem    Role = "System"
	RoleUser      Role = "User"
	RoleAssistant Role = "Assistant"
	RoleTool      Role = "Tool"
)

// Message is one entry of PromptSpec.messages.
type Message struct {
	Role     Role           `json:"role"`
	Content  string         `json:"content"`
	Name     string         `json:"name,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// UnmarshalJSON accepts content as either a plain string or an array of
// {"type":"text","text":...} content parts, joined without a separator —
// grounded in the teacher's own ChatMessage.UnmarshalJSON content-union
// handling (internal/translator/openai.go), generalized to PromptSpec.
func (m *Message) UnmarshalJSON(data []byte) error {
	type alias struct {
		Role     Role            `json:"role"`
		Content  json.RawMessage `json:"content"`
		Name     string          `json:"name,omitempty"`
		Metadata map[string]any  `json:"metadata,omitempty"`
	}
	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	content, err := extractContent(raw.Content)
	if err != nil {
		return err
	}
	m.Role = raw.Role
	m.Content = content
	m.Name = raw.Name
	m.Metadata = raw.Metadata
	return nil
}

func extractContent(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("message content is required")
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, nil
	}
	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err == nil {
		var b strings.Builder
		for _, part := range parts {
			if part.Type != "" && part.Type != "text" {
				return "", fmt.Errorf("unsupported content part type %q", part.Type)
			}
			b.WriteString(part.Text)
		}
		return b.String(), nil
	}
	return "", fmt.Errorf("unsupported message content structure")
}

// Tool describes a single callable tool.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	JSONSchema  jsonvalue.Value `json:"json_schema"`
}

// ToolChoice is the oneof {"auto","required",{"name":x}}.
type ToolChoice struct {
	Mode string // "auto", "required", or "name"
	Name string
}

func (t ToolChoice) MarshalJSON() ([]byte, error) {
	switch t.Mode {
	case "auto", "required":
		return json.Marshal(t.Mode)
	case "name":
		return json.Marshal(map[string]string{"name": t.Name})
	default:
		return json.Marshal("auto")
	}
}

func (t *ToolChoice) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		t.Mode = s
		return nil
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decode tool_choice: %w", err)
	}
	t.Mode = "name"
	t.Name = obj.Name
	return nil
}

// ResponseFormat is the oneof {"text","json_object",{"json_schema":...,"strict"?:bool}}.
type ResponseFormat struct {
	Kind       string // "text", "json_object", or "json_schema"
	JSONSchema jsonvalue.Value
	Strict     *bool
}

func (r ResponseFormat) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case "text", "json_object":
		return json.Marshal(r.Kind)
	case "json_schema":
		obj := map[string]any{"json_schema": r.JSONSchema}
		if r.Strict != nil {
			obj["strict"] = *r.Strict
		}
		return json.Marshal(obj)
	default:
		return json.Marshal("text")
	}
}

func (r *ResponseFormat) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.Kind = s
		return nil
	}
	var obj struct {
		JSONSchema jsonvalue.Value `json:"json_schema"`
		Strict     *bool           `json:"strict"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decode response_format: %w", err)
	}
	r.Kind = "json_schema"
	r.JSONSchema = obj.JSONSchema
	r.Strict = obj.Strict
	return nil
}

// Sampling holds the optional numeric sampling knobs.
type Sampling struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	TopK             *int     `json:"top_k,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
}

// Limits holds the optional token-budget knobs.
type Limits struct {
	MaxOutputTokens *int `json:"max_output_tokens,omitempty"`
	ReasoningTokens *int `json:"reasoning_tokens,omitempty"`
	MaxPromptTokens *int `json:"max_prompt_tokens,omitempty"`
}

// Media holds the optional multimodal inputs/outputs.
type Media struct {
	InputImages    []jsonvalue.Value `json:"input_images,omitempty"`
	InputAudio     *jsonvalue.Value  `json:"input_audio,omitempty"`
	InputVideo     *jsonvalue.Value  `json:"input_video,omitempty"`
	InputDocuments []jsonvalue.Value `json:"input_documents,omitempty"`
	OutputAudio    *jsonvalue.Value  `json:"output_audio,omitempty"`
}

// PromptSpec is the uniform request description (spec section 3.1).
type PromptSpec struct {
	ModelClass     ModelClass       `json:"model_class"`
	Messages       []Message        `json:"messages"`
	Tools          []Tool           `json:"tools,omitempty"`
	ToolChoice     *ToolChoice      `json:"tool_choice,omitempty"`
	ResponseFormat *ResponseFormat  `json:"response_format,omitempty"`
	Sampling       *Sampling        `json:"sampling,omitempty"`
	Limits         *Limits          `json:"limits,omitempty"`
	Media          *Media           `json:"media,omitempty"`
	RAG            *jsonvalue.Value `json:"rag,omitempty"`
	Conversation   *jsonvalue.Value `json:"conversation,omitempty"`
	Preferences    *jsonvalue.Value `json:"preferences,omitempty"`
	StrictMode     strictness.Mode  `json:"strict_mode"`
}

// UnmarshalJSON defaults strict_mode to Warn when absent, per spec 3.1.
func (p *PromptSpec) UnmarshalJSON(data []byte) error {
	type alias PromptSpec
	aux := struct {
		alias
		StrictMode *string `json:"strict_mode"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("decode prompt_spec: %w", err)
	}
	*p = PromptSpec(aux.alias)
	if aux.StrictMode == nil || strings.TrimSpace(*aux.StrictMode) == "" {
		p.StrictMode = strictness.Warn
	} else if mode, ok := strictness.ParseMode(*aux.StrictMode); ok {
		p.StrictMode = mode
	} else {
		p.StrictMode = strictness.Mode(*aux.StrictMode) // preserved for validator to reject
	}
	return nil
}

// ToValue renders p as a generic jsonvalue tree keyed by the canonical
// PromptSpec paths (spec section 6.4), so the pipeline stages can read it
// through the path engine. The object key order follows PromptSpec's field
// declaration order, which keeps translate() deterministic run to run.
func (p *PromptSpec) ToValue() (jsonvalue.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return jsonvalue.Value{}, fmt.Errorf("marshal prompt_spec: %w", err)
	}
	return jsonvalue.Parse(data)
}

// DecodePromptSpec parses raw JSON bytes into a PromptSpec.
func DecodePromptSpec(data []byte) (*PromptSpec, error) {
	var p PromptSpec
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode prompt_spec: %w", err)
	}
	return &p, nil
}
