package web

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// templateSchema validates template payloads at the HTTP boundary before they
// are decoded into domain types. It rejects unknown fields and wrong shapes
// with field-level messages the struct decoder cannot produce.
const templateSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["tasks"],
	"additionalProperties": false,
	"properties": {
		"tasks": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["name", "offset_days", "order"],
				"additionalProperties": false,
				"properties": {
					"name":              {"type": "string", "minLength": 1},
					"offset_days":       {"type": "integer"},
					"order":             {"type": "integer", "minimum": 1},
					"can_automate":      {"type": "boolean"},
					"approval_required": {"type": "boolean"},
					"estimated_hours":   {"type": "number", "minimum": 0},
					"requires_human":    {"type": "boolean"},
					"can_batch":         {"type": "boolean"}
				}
			}
		}
	}
}`

var compiledTemplateSchema = gojsonschema.NewStringLoader(templateSchema)

// validateTemplatePayload checks the raw request body against the template
// schema and returns a readable aggregate of violations.
func validateTemplatePayload(body []byte) error {
	result, err := gojsonschema.Validate(compiledTemplateSchema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("invalid JSON format: %w", err)
	}

	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, violation := range result.Errors() {
		details = append(details, violation.String())
	}

	return fmt.Errorf("template payload invalid: %s", strings.Join(details, "; "))
}
