package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaFile string

//go:embed default.yaml
var DEFAULT []byte

func compileSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(schemaFile)); err != nil {
		return nil, err
	}
	return compiler.Compile("schema.json")
}

func parse(data []byte, extension string) (map[string]any, error) {
	value := make(map[string]any)
	switch extension {
	case ".json":
		if err := json.Unmarshal(data, &value); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &value); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("not in a valid format")
	}
	return value, nil
}

func readFile(path string) (map[string]any, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("does not exist")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return parse(data, filepath.Ext(path))
}

// merge copies src over dst. Objects merge key by key; everything else,
// lists included, replaces what was there.
func merge(dst, src map[string]any) map[string]any {
	for key, value := range src {
		srcMap, srcIsMap := value.(map[string]any)
		dstMap, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[key] = merge(dstMap, srcMap)
			continue
		}
		dst[key] = value
	}
	return dst
}

// normalize round-trips a value through JSON so the validator only sees
// JSON types.
func normalize(value map[string]any) (any, []byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, nil, err
	}
	var normalized any
	if err := json.Unmarshal(data, &normalized); err != nil {
		return nil, nil, err
	}
	return normalized, data, nil
}

// Process reads the provided configuration files in order on top of the
// default configuration, validating each step against the schema.
func Process(configPaths []string) (*Config, error) {
	schema, err := compileSchema()
	if err != nil {
		return nil, fmt.Errorf("invalid config schema: %w", err)
	}

	merged, err := parse(DEFAULT, ".yaml")
	if err != nil {
		return nil, fmt.Errorf("invalid default config file: %w", err)
	}

	for _, path := range configPaths {
		value, err := readFile(path)
		if err != nil {
			return nil, fmt.Errorf(
				"could not process config file %s: %w",
				path,
				err,
			)
		}

		merged = merge(merged, value)

		normalized, _, err := normalize(merged)
		if err != nil {
			return nil, fmt.Errorf(
				"could not merge config file %s: %w",
				path,
				err,
			)
		}

		if err := schema.Validate(normalized); err != nil {
			return nil, fmt.Errorf(
				"config file %s is not valid: %w",
				path,
				err,
			)
		}
	}

	normalized, data, err := normalize(merged)
	if err != nil {
		return nil, fmt.Errorf("could not aggregate config: %w", err)
	}

	if err := schema.Validate(normalized); err != nil {
		return nil, err
	}

	config := Config{}
	err = json.Unmarshal(data, &config)
	return &config, err
}
