package validator

import (
	"fmt"
	"regexp"
	"strings"

	"specado/internal/jsonvalue"
)

var providerSpecTopLevelFields = map[string]bool{
	"spec_version": true, "provider": true, "models": true,
}

var envPlaceholderRe = regexp.MustCompile(`\$\{[^}]*\}`)
var envPlaceholderValidRe = regexp.MustCompile(`^\$\{ENV:[A-Za-z_][A-Za-z0-9_]*\}$`)

func validateProviderSpec(c *collector, doc jsonvalue.Value, mode Mode) {
	if !doc.IsObject() {
		c.add("", "provider_spec must be a JSON object", "provider_spec.type", "object", doc.Kind().String())
		return
	}
	obj := doc.Object()

	if mode == Strict {
		for _, k := range obj.Keys() {
			if !providerSpecTopLevelFields[k] {
				c.add(k, fmt.Sprintf("unknown top-level field %q", k), "provider_spec.unknown_field", nil, k)
			}
		}
	}

	if _, ok := obj.Get("spec_version"); !ok {
		c.add("spec_version", "spec_version is required", "provider_spec.required", "string", nil)
	}

	var baseURL string
	var headerKeys []string
	var headerObj *jsonvalue.Object
	if providerVal, ok := obj.Get("provider"); !ok || !providerVal.IsObject() {
		c.add("provider", "provider is required and must be an object", "provider_spec.required", "object", nil)
	} else {
		pObj := providerVal.Object()
		if nameVal, ok := pObj.Get("name"); !ok || !nameVal.IsString() {
			c.add("provider.name", "provider.name is required", "provider_spec.required", "string", nil)
		}
		if urlVal, ok := pObj.Get("base_url"); ok && urlVal.IsString() {
			baseURL = urlVal.String_()
		}
		if headersVal, ok := pObj.Get("headers"); ok && headersVal.IsObject() {
			headerObj = headersVal.Object()
			headerKeys = headerObj.Keys()
		}
	}

	if mode == Strict && headerObj != nil {
		for _, k := range headerKeys {
			v, _ := headerObj.Get(k)
			if !v.IsString() {
				continue
			}
			checkEnvPlaceholders(c, fmt.Sprintf("provider.headers.%s", k), v.String_())
		}
	}

	modelsVal, hasModels := obj.Get("models")
	if !hasModels || !modelsVal.IsArray() {
		c.add("models", "models is required and must be an array", "provider_spec.required", "array", nil)
		return
	}
	for i, m := range modelsVal.Array_() {
		validateModel(c, fmt.Sprintf("models[%d]", i), m, mode, baseURL)
	}
}

func checkEnvPlaceholders(c *collector, p, value string) {
	for _, m := range envPlaceholderRe.FindAllString(value, -1) {
		if !envPlaceholderValidRe.MatchString(m) {
			c.add(p, fmt.Sprintf("placeholder %q must have the form ${ENV:NAME}", m), "provider_spec.env_placeholder", "${ENV:NAME}", m)
		}
	}
}

func validateModel(c *collector, p string, m jsonvalue.Value, mode Mode, baseURL string) {
	if !m.IsObject() {
		c.add(p, "model entry must be an object", "provider_spec.type", "object", m.ToGo())
		return
	}
	obj := m.Object()

	if idVal, ok := obj.Get("id"); !ok || !idVal.IsString() || idVal.String_() == "" {
		c.add(joinPath(p, "id"), "model id is required", "provider_spec.required", "string", idVal.ToGo())
	}

	var toolsSupported bool
	var toolingExtensions jsonvalue.Value
	if toolingVal, ok := obj.Get("tooling"); ok && toolingVal.IsObject() {
		tObj := toolingVal.Object()
		if v, ok := tObj.Get("tools_supported"); ok && v.IsBool() {
			toolsSupported = v.Bool()
		}
		if v, ok := tObj.Get("extensions"); ok {
			toolingExtensions = v
		}
	}

	if mode == Strict && !toolsSupported && toolingExtensions.IsObject() {
		if _, ok := toolingExtensions.Object().Get("tool_choice_modes"); ok {
			c.add(joinPath(p, "tooling.extensions.tool_choice_modes"), "tool_choice_modes must not appear when tools_supported is false", "provider_spec.capability_consistency", nil, "tool_choice_modes present")
		}
	}

	if mode == Strict {
		if endpointsVal, ok := obj.Get("endpoints"); ok && endpointsVal.IsObject() {
			eObj := endpointsVal.Object()
			for _, name := range eObj.Keys() {
				ev, _ := eObj.Get(name)
				if !ev.IsObject() {
					continue
				}
				protoVal, hasProto := ev.Object().Get("protocol")
				if strings.HasPrefix(baseURL, "https://") && hasProto && protoVal.IsString() && protoVal.String_() != "https" {
					c.add(fmt.Sprintf("%s.endpoints.%s.protocol", p, name), "endpoint protocol must be https when base_url is https", "provider_spec.protocol_consistency", "https", protoVal.String_())
				}
			}
		}
	}

	var mappingPaths = map[string]bool{}
	if mappingsVal, ok := obj.Get("mappings"); ok && mappingsVal.IsObject() {
		if pathsVal, ok := mappingsVal.Object().Get("paths"); ok && pathsVal.IsObject() {
			pObj := pathsVal.Object()
			for _, canonical := range pObj.Keys() {
				mappingPaths[canonical] = true
				providerVal, _ := pObj.Get(canonical)
				if mode == Strict {
					if !isWellFormedCanonicalPath(canonical) {
						c.add(fmt.Sprintf("%s.mappings.paths.%s", p, canonical), "mapping key is not a well-formed canonical path", "provider_spec.path_syntax", nil, canonical)
					}
					if providerVal.IsString() && !isWellFormedCanonicalPath(providerVal.String_()) {
						c.add(fmt.Sprintf("%s.mappings.paths.%s", p, canonical), "mapping target is not a well-formed provider path", "provider_spec.path_syntax", nil, providerVal.String_())
					}
				}
			}
		}
	}

	if constraintsVal, ok := obj.Get("constraints"); ok && constraintsVal.IsObject() {
		cObj := constraintsVal.Object()
		if mode == Strict {
			if groupsVal, ok := cObj.Get("mutually_exclusive"); ok && groupsVal.IsArray() {
				for gi, g := range groupsVal.Array_() {
					if !g.IsArray() {
						continue
					}
					for _, member := range g.Array_() {
						if !member.IsString() {
							continue
						}
						if member.String_() != "messages" && !mappingPaths[member.String_()] {
							c.add(fmt.Sprintf("%s.constraints.mutually_exclusive[%d]", p, gi), "path referenced by mutually_exclusive is not a key of mappings.paths", "provider_spec.mapping_reference", "key of mappings.paths", member.String_())
						}
					}
				}
			}
			if prefsVal, ok := cObj.Get("resolution_preferences"); ok && prefsVal.IsArray() {
				for _, pref := range prefsVal.Array_() {
					if !pref.IsString() {
						continue
					}
					if pref.String_() != "messages" && !mappingPaths[pref.String_()] {
						c.add(joinPath(p, "constraints.resolution_preferences"), "path referenced by resolution_preferences is not a key of mappings.paths", "provider_spec.mapping_reference", "key of mappings.paths", pref.String_())
					}
				}
			}
		}
	}
}
