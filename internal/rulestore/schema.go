package rulestore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "thymus://invariants.schema.json"

// documentSchema checks the JSON shape of a document. Rule semantics
// (known types, required fields per type) are checked per rule by
// rules.NewRuleSet so that one bad rule does not reject the file.
const documentSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["invariants"],
  "properties": {
    "version": {"type": ["integer", "string"]},
    "invariants": {
      "type": ["array", "null"],
      "items": {"$ref": "#/$defs/rule"}
    }
  },
  "$defs": {
    "stringList": {
      "oneOf": [
        {"type": "string"},
        {"type": "null"},
        {"type": "array", "items": {"type": "string"}}
      ]
    },
    "rule": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": {"type": "string"},
        "type": {"type": "string"},
        "severity": {"type": "string"},
        "description": {"type": "string"},
        "scope_glob": {"type": "string"},
        "source_glob": {"type": "string"},
        "scope_glob_exclude": {"$ref": "#/$defs/stringList"},
        "forbidden_imports": {"$ref": "#/$defs/stringList"},
        "allowed_imports": {"$ref": "#/$defs/stringList"},
        "forbidden_pattern": {"type": "string"},
        "rule": {"type": "string"},
        "package": {"type": "string"},
        "allowed_in": {"$ref": "#/$defs/stringList"},
        "inferred": {"type": "boolean"},
        "confidence": {"type": "number", "minimum": 0, "maximum": 100}
      }
    }
  }
}`

var knownRuleKeys = map[string]bool{
	"id": true, "type": true, "severity": true, "description": true,
	"scope_glob": true, "source_glob": true, "scope_glob_exclude": true,
	"forbidden_imports": true, "allowed_imports": true, "forbidden_pattern": true,
	"rule": true, "package": true, "allowed_in": true,
	"inferred": true, "confidence": true,
}

var compiledSchema = func() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaURL, strings.NewReader(documentSchema)); err != nil {
		panic(err)
	}
	return c.MustCompile(schemaURL)
}()

// validateShape checks a generically decoded document against the schema
// and returns a warning for every unrecognised rule key.
func validateShape(generic interface{}) (warnings []string, err error) {
	data, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("document is not representable as JSON: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	if err := compiledSchema.Validate(v); err != nil {
		return nil, schemaError(err)
	}

	doc, _ := v.(map[string]interface{})
	list, _ := doc["invariants"].([]interface{})
	for i, item := range list {
		rule, _ := item.(map[string]interface{})
		var unknown []string
		for key := range rule {
			if !knownRuleKeys[key] {
				unknown = append(unknown, key)
			}
		}
		sort.Strings(unknown)
		for _, key := range unknown {
			warnings = append(warnings, fmt.Sprintf("invariants[%d] (%v): unknown key %q ignored", i, rule["id"], key))
		}
	}
	return warnings, nil
}

// schemaError flattens a validation error into its leaf causes.
func schemaError(err error) error {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err
	}
	var leaves []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			leaves = append(leaves, loc+": "+e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return fmt.Errorf("schema: %s", strings.Join(leaves, "; "))
}
