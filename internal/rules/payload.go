package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMissingBlocklist is returned when a payload has no blocklist field.
var ErrMissingBlocklist = errors.New(`payload has no "blocklist" field`)

// Payload is the wire shape of a rules document.
type Payload struct {
	Blocklist []string `json:"blocklist" yaml:"blocklist"`
}

// ParsePayload decodes a JSON rules document and returns its blocklist.
func ParsePayload(data []byte) ([]string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	field, ok := raw["blocklist"]
	if !ok {
		return nil, ErrMissingBlocklist
	}

	var names []string
	if err := json.Unmarshal(field, &names); err != nil {
		return nil, fmt.Errorf("blocklist is not a list of strings: %w", err)
	}
	if New(names).Len() == 0 {
		return nil, ErrEmptyRuleSet
	}
	return names, nil
}

// parseYAML decodes a YAML rules document.
func parseYAML(data []byte) ([]string, error) {
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	node, ok := raw["blocklist"]
	if !ok {
		return nil, ErrMissingBlocklist
	}

	var names []string
	if err := node.Decode(&names); err != nil {
		return nil, fmt.Errorf("blocklist is not a list of strings: %w", err)
	}
	if New(names).Len() == 0 {
		return nil, ErrEmptyRuleSet
	}
	return names, nil
}

// ParseFile reads a local rules file. .yaml and .yml files are decoded as
// YAML, anything else as JSON.
func ParseFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseYAML(data)
	default:
		return ParsePayload(data)
	}
}

// Marshal renders names as a JSON rules document.
func Marshal(names []string) ([]byte, error) {
	return json.MarshalIndent(Payload{Blocklist: names}, "", "  ")
}
