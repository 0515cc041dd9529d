package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// readSpecFile loads a PromptSpec or ProviderSpec document from disk,
// normalizing a YAML source into the JSON bytes the translation core
// always consumes (SPEC_FULL section 11's "optional YAML prompt/provider
// spec files").
func readSpecFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse %q as YAML: %w", path, err)
		}
		out, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("convert %q to JSON: %w", path, err)
		}
		return out, nil
	default:
		return raw, nil
	}
}
