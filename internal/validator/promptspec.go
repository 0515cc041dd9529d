package validator

import (
	"fmt"

	"specado/internal/jsonvalue"
	"specado/internal/path"
)

var validModelClasses = map[string]bool{
	"Chat": true, "ReasoningChat": true, "VisionChat": true, "AudioChat": true,
	"MultimodalChat": true, "RAGChat": true, "Completion": true, "Embedding": true,
}

var chatFamilyClasses = map[string]bool{
	"Chat": true, "ReasoningChat": true, "VisionChat": true, "AudioChat": true,
	"MultimodalChat": true, "RAGChat": true,
}

var validRoles = map[string]bool{"System": true, "User": true, "Assistant": true, "Tool": true}

var validStrictModes = map[string]bool{"Strict": true, "Warn": true, "Coerce": true}

var promptSpecTopLevelFields = map[string]bool{
	"model_class": true, "messages": true, "tools": true, "tool_choice": true,
	"response_format": true, "sampling": true, "limits": true, "media": true,
	"rag": true, "conversation": true, "preferences": true, "strict_mode": true,
}

// validatePromptSpec checks doc against the PromptSpec schema at the given
// mode, appending violations to c in depth-first document order.
func validatePromptSpec(c *collector, doc jsonvalue.Value, mode Mode) {
	if !doc.IsObject() {
		c.add("", "prompt_spec must be a JSON object", "prompt_spec.type", "object", doc.Kind().String())
		return
	}
	obj := doc.Object()

	if mode == Strict {
		for _, k := range obj.Keys() {
			if !promptSpecTopLevelFields[k] {
				c.add(k, fmt.Sprintf("unknown top-level field %q", k), "prompt_spec.unknown_field", nil, k)
			}
		}
	}

	modelClassVal, hasModelClass := obj.Get("model_class")
	var modelClass string
	if !hasModelClass {
		c.add("model_class", "model_class is required", "prompt_spec.required", "model_class", nil)
	} else if !modelClassVal.IsString() || !validModelClasses[modelClassVal.String_()] {
		c.add("model_class", "model_class must be one of the declared model classes", "prompt_spec.enum", validModelClasses, modelClassVal.ToGo())
	} else {
		modelClass = modelClassVal.String_()
	}

	messagesVal, hasMessages := obj.Get("messages")
	if !hasMessages || !messagesVal.IsArray() {
		c.add("messages", "messages is required and must be an array", "prompt_spec.required", "array", messagesVal.ToGo())
	} else {
		msgs := messagesVal.Array_()
		if len(msgs) == 0 && chatFamilyClasses[modelClass] {
			c.add("messages", "messages must be non-empty for a chat-family model_class", "prompt_spec.messages_nonempty", ">=1", 0)
		}
		for i, m := range msgs {
			validateMessage(c, fmt.Sprintf("messages[%d]", i), m)
		}
	}

	toolNames := map[string]bool{}
	if toolsVal, ok := obj.Get("tools"); ok && toolsVal.IsArray() {
		for i, t := range toolsVal.Array_() {
			p := fmt.Sprintf("tools[%d]", i)
			if !t.IsObject() {
				c.add(p, "tool entry must be an object", "prompt_spec.type", "object", t.ToGo())
				continue
			}
			nameVal, ok := t.Object().Get("name")
			if !ok || !nameVal.IsString() || nameVal.String_() == "" {
				c.add(joinPath(p, "name"), "tool name is required", "prompt_spec.required", "string", nameVal.ToGo())
			} else {
				toolNames[nameVal.String_()] = true
			}
			if _, ok := t.Object().Get("json_schema"); !ok {
				c.add(joinPath(p, "json_schema"), "tool json_schema is required", "prompt_spec.required", "object", nil)
			}
		}
	}

	if tcVal, ok := obj.Get("tool_choice"); ok {
		validateToolChoice(c, tcVal, toolNames, mode)
	}

	if rfVal, ok := obj.Get("response_format"); ok {
		validateResponseFormat(c, rfVal)
	}

	if mode == Partial || mode == Strict {
		if samplingVal, ok := obj.Get("sampling"); ok && samplingVal.IsObject() {
			validateSampling(c, samplingVal.Object())
		}
		if limitsVal, ok := obj.Get("limits"); ok && limitsVal.IsObject() {
			validateLimits(c, limitsVal.Object())
		}
	}

	if smVal, ok := obj.Get("strict_mode"); ok {
		if !smVal.IsString() || !validStrictModes[smVal.String_()] {
			c.add("strict_mode", "strict_mode must be one of Strict, Warn, Coerce", "prompt_spec.enum", []string{"Strict", "Warn", "Coerce"}, smVal.ToGo())
		}
	}
}

func validateMessage(c *collector, p string, m jsonvalue.Value) {
	if !m.IsObject() {
		c.add(p, "message must be an object", "prompt_spec.type", "object", m.ToGo())
		return
	}
	obj := m.Object()
	roleVal, hasRole := obj.Get("role")
	if !hasRole || !roleVal.IsString() || !validRoles[roleVal.String_()] {
		c.add(joinPath(p, "role"), "role must be one of System, User, Assistant, Tool", "prompt_spec.enum", []string{"System", "User", "Assistant", "Tool"}, roleVal.ToGo())
	}
	contentVal, hasContent := obj.Get("content")
	if !hasContent {
		c.add(joinPath(p, "content"), "content is required", "prompt_spec.required", "string or content parts", nil)
		return
	}
	if contentVal.IsString() {
		return
	}
	if contentVal.IsArray() {
		for i, part := range contentVal.Array_() {
			pp := fmt.Sprintf("%s.content[%d]", p, i)
			if !part.IsObject() {
				c.add(pp, "content part must be an object", "prompt_spec.type", "object", part.ToGo())
				continue
			}
			if textVal, ok := part.Object().Get("text"); !ok || !textVal.IsString() {
				c.add(joinPath(pp, "text"), "content part text is required", "prompt_spec.required", "string", textVal.ToGo())
			}
		}
		return
	}
	c.add(joinPath(p, "content"), "content must be a string or an array of content parts", "prompt_spec.type", "string|array", contentVal.ToGo())
}

func validateToolChoice(c *collector, v jsonvalue.Value, toolNames map[string]bool, mode Mode) {
	if v.IsString() {
		if v.String_() != "auto" && v.String_() != "required" {
			c.add("tool_choice", "tool_choice string form must be \"auto\" or \"required\"", "prompt_spec.enum", []string{"auto", "required"}, v.String_())
		}
		return
	}
	if !v.IsObject() {
		c.add("tool_choice", "tool_choice must be a string or {\"name\": string}", "prompt_spec.type", "string|object", v.ToGo())
		return
	}
	nameVal, ok := v.Object().Get("name")
	if !ok || !nameVal.IsString() {
		c.add("tool_choice.name", "tool_choice.name is required and must be a string", "prompt_spec.required", "string", nameVal.ToGo())
		return
	}
	if (mode == Partial || mode == Strict) && !toolNames[nameVal.String_()] {
		c.add("tool_choice.name", "tool_choice.name must reference a declared tool", "prompt_spec.tool_choice_reference", "declared tool name", nameVal.String_())
	}
}

func validateResponseFormat(c *collector, v jsonvalue.Value) {
	if v.IsString() {
		if v.String_() != "text" && v.String_() != "json_object" {
			c.add("response_format", "response_format string form must be \"text\" or \"json_object\"", "prompt_spec.enum", []string{"text", "json_object"}, v.String_())
		}
		return
	}
	if !v.IsObject() {
		c.add("response_format", "response_format must be a string or an object with json_schema", "prompt_spec.type", "string|object", v.ToGo())
		return
	}
	if _, ok := v.Object().Get("json_schema"); !ok {
		c.add("response_format.json_schema", "json_schema is required when response_format is an object", "prompt_spec.required", "object", nil)
	}
}

func validateSampling(c *collector, obj *jsonvalue.Object) {
	checkRange(c, obj, "sampling.temperature", "temperature", 0, 2)
	checkRange(c, obj, "sampling.top_p", "top_p", 0, 1)
	checkMin(c, obj, "sampling.top_k", "top_k", 1)
	checkRange(c, obj, "sampling.frequency_penalty", "frequency_penalty", -2, 2)
	checkRange(c, obj, "sampling.presence_penalty", "presence_penalty", -2, 2)
}

func validateLimits(c *collector, obj *jsonvalue.Object) {
	checkMin(c, obj, "limits.max_output_tokens", "max_output_tokens", 1)
	checkMin(c, obj, "limits.reasoning_tokens", "reasoning_tokens", 1)
	checkMin(c, obj, "limits.max_prompt_tokens", "max_prompt_tokens", 1)
}

func checkRange(c *collector, obj *jsonvalue.Object, fullPath, key string, min, max float64) {
	v, ok := obj.Get(key)
	if !ok {
		return
	}
	if !v.IsNumber() {
		c.add(fullPath, fmt.Sprintf("%s must be a number", key), "prompt_spec.type", "number", v.ToGo())
		return
	}
	if v.Number() < min || v.Number() > max {
		c.add(fullPath, fmt.Sprintf("%s must be within [%g, %g]", key, min, max), "prompt_spec.range", fmt.Sprintf("[%g, %g]", min, max), v.Number())
	}
}

func checkMin(c *collector, obj *jsonvalue.Object, fullPath, key string, min float64) {
	v, ok := obj.Get(key)
	if !ok {
		return
	}
	if !v.IsNumber() {
		c.add(fullPath, fmt.Sprintf("%s must be a number", key), "prompt_spec.type", "number", v.ToGo())
		return
	}
	if v.Number() < min {
		c.add(fullPath, fmt.Sprintf("%s must be >= %g", key, min), "prompt_spec.range", fmt.Sprintf(">= %g", min), v.Number())
	}
}

// isWellFormedCanonicalPath reports whether p parses as a path expression;
// used by ProviderSpec validation to check mappings.paths keys.
func isWellFormedCanonicalPath(p string) bool {
	_, err := path.Parse(p)
	return err == nil
}
