package server

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const (
	uploadSchemaURL  = "https://slowrvb.local/schemas/upload.json"
	effectsSchemaURL = "https://slowrvb.local/schemas/effects.json"
)

const uploadSchema = `{
	"type": "object",
	"required": ["url"],
	"properties": {
		"url": {"type": "string", "minLength": 1, "maxLength": 2048}
	}
}`

const effectsSchema = `{
	"type": "object",
	"required": ["audio_id"],
	"properties": {
		"audio_id":   {"type": "string", "minLength": 1, "maxLength": 64},
		"speed":      {"type": ["number", "null"], "exclusiveMinimum": 0},
		"reverb":     {"type": ["number", "null"], "minimum": 0, "maximum": 100},
		"bass_boost": {"type": ["boolean", "null"]}
	}
}`

// requestValidator checks request bodies against the embedded JSON Schemas.
type requestValidator struct {
	upload  *jsonschema.Schema
	effects *jsonschema.Schema
}

func newRequestValidator() (*requestValidator, error) {
	c := jsonschema.NewCompiler()
	for loc, src := range map[string]string{
		uploadSchemaURL:  uploadSchema,
		effectsSchemaURL: effectsSchema,
	} {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("parse schema %s: %w", loc, err)
		}
		if err := c.AddResource(loc, doc); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", loc, err)
		}
	}
	upload, err := c.Compile(uploadSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile upload schema: %w", err)
	}
	effects, err := c.Compile(effectsSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile effects schema: %w", err)
	}
	return &requestValidator{upload: upload, effects: effects}, nil
}

// validate parses body as JSON and checks it against schema.
func validate(schema *jsonschema.Schema, body []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("body is not valid JSON: %w", err)
	}
	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("%s", validationCause(err.Error()))
	}
	return nil
}

func validationCause(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	// The first line only names the schema; the cause follows.
	if len(lines) > 1 {
		return strings.TrimSpace(strings.TrimLeft(lines[1], " -"))
	}
	return lines[0]
}
