// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

package config

import (
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// SchemaID is the $id of the generated config schema.
const SchemaID = "https://bento.dev/schemas/config.schema.json"

var (
	compileOnce sync.Once
	compiled    *jschema.Schema
	compileErr  error
)

// GenerateSchema reflects the JSON Schema of Config. Unknown keys are rejected.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	schema := r.Reflect(&Config{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "Bento configuration"
	schema.Description = "Schema for the bento config.yaml file"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code("CONFIG_SCHEMA_FAILED").Wrapf(err, "marshal schema")
	}
	return data, nil
}

// ValidateSchema checks YAML config data against the generated schema.
func ValidateSchema(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return oops.Code("CONFIG_PARSE_FAILED").Wrapf(err, "invalid YAML")
	}

	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := sch.Validate(toJSONTypes(doc)); err != nil {
		return oops.Code("CONFIG_SCHEMA_VIOLATION").Wrapf(err, "config does not match schema")
	}
	return nil
}

func compiledSchema() (*jschema.Schema, error) {
	compileOnce.Do(func() {
		raw, err := GenerateSchema()
		if err != nil {
			compileErr = err
			return
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			compileErr = oops.Code("CONFIG_SCHEMA_FAILED").Wrapf(err, "parse schema")
			return
		}
		c := jschema.NewCompiler()
		if err := c.AddResource(SchemaID, doc); err != nil {
			compileErr = oops.Code("CONFIG_SCHEMA_FAILED").Wrapf(err, "add schema resource")
			return
		}
		compiled, err = c.Compile(SchemaID)
		if err != nil {
			compileErr = oops.Code("CONFIG_SCHEMA_FAILED").Wrapf(err, "compile schema")
		}
	})
	return compiled, compileErr
}

// toJSONTypes rewrites YAML-decoded values into the shapes the validator accepts.
func toJSONTypes(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = toJSONTypes(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = toJSONTypes(item)
		}
		return out
	case string, bool, int, int64, float64, nil:
		return val
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return val
		}
		var out any
		if err := json.Unmarshal(b, &out); err != nil {
			return val
		}
		return out
	}
}
