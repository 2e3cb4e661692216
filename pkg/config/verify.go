package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/invopop/jsonschema"
)

//go:embed schema.json
var embeddedSchema string

// VerifyAgainstEmbeddedSchema validates the config against the embedded JSON schema
func VerifyAgainstEmbeddedSchema(cfg *Config) error {
	return verify(cfg, []byte(embeddedSchema))
}

func verify(cfg *Config, schemaData []byte) error {
	var schema map[string]any
	if err := json.Unmarshal(schemaData, &schema); err != nil {
		return fmt.Errorf("parse schema: %w", err)
	}

	// convert config to JSON for validation
	configData, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	var doc any
	if err := json.Unmarshal(configData, &doc); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	defs, _ := schema["$defs"].(map[string]any)
	return check(doc, schema, defs, "config")
}

// check walks the subset of json schema the generator emits: refs, objects with required
// properties, arrays with minItems and string enums
func check(val any, schema, defs map[string]any, path string) error {
	if ref, ok := schema["$ref"].(string); ok {
		def, ok := defs[strings.TrimPrefix(ref, "#/$defs/")].(map[string]any)
		if !ok {
			return fmt.Errorf("%s: unknown schema ref %s", path, ref)
		}
		return check(val, def, defs, path)
	}

	if enum, ok := schema["enum"].([]any); ok && !slices.Contains(enum, val) {
		return fmt.Errorf("%s: %v is not one of %v", path, val, enum)
	}

	switch v := val.(type) {
	case map[string]any:
		for _, r := range asStrings(schema["required"]) {
			if _, ok := v[r]; !ok {
				return fmt.Errorf("%s.%s is required", path, r)
			}
		}
		props, _ := schema["properties"].(map[string]any)
		for name, sub := range props {
			subSchema, ok := sub.(map[string]any)
			if !ok {
				continue
			}
			if field, ok := v[name]; ok && field != nil {
				if err := check(field, subSchema, defs, path+"."+name); err != nil {
					return err
				}
			}
		}
	case []any:
		if minItems, ok := schema["minItems"].(float64); ok && float64(len(v)) < minItems {
			return fmt.Errorf("%s must have at least %d items", path, int(minItems))
		}
		items, _ := schema["items"].(map[string]any)
		for i, item := range v {
			if err := check(item, items, defs, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	}
	return nil
}

func asStrings(v any) []string {
	list, _ := v.([]any)
	res := make([]string, 0, len(list))
	for _, s := range list {
		if str, ok := s.(string); ok {
			res = append(res, str)
		}
	}
	return res
}

// GenerateSchema generates a JSON schema for the Config struct
func GenerateSchema() *jsonschema.Schema {
	return jsonschema.Reflect(&Config{})
}
