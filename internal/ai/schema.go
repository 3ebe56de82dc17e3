package ai

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"niena/internal/config"
	"niena/internal/errors"

	"github.com/xeipuuv/gojsonschema"
	"google.golang.org/genai"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// stageSchema is the JSON contract of one stage's answer. The same document drives
// validation, the Gemini response schema and the OpenAI format instructions.
type stageSchema struct {
	Stage     string
	Raw       []byte
	validator *gojsonschema.Schema
	genai     *genai.Schema
}

var (
	schemasOnce sync.Once
	schemas     map[string]*stageSchema
	schemasErr  error
)

// schemaFor returns the compiled schema for a stage
func schemaFor(stage string) (*stageSchema, error) {
	schemasOnce.Do(func() {
		schemas, schemasErr = loadSchemas()
	})
	if schemasErr != nil {
		return nil, schemasErr
	}
	s, ok := schemas[stage]
	if !ok {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("no response schema for stage %q", stage), nil)
	}
	return s, nil
}

func loadSchemas() (map[string]*stageSchema, error) {
	out := make(map[string]*stageSchema, len(config.Stages))
	for _, stage := range config.Stages {
		raw, err := schemaFS.ReadFile("schemas/" + stage + ".json")
		if err != nil {
			return nil, errors.NewInternalError("SCHEMA_MISSING", "response schema missing for "+stage, err)
		}

		validator, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, errors.NewInternalError("SCHEMA_INVALID", "response schema does not compile for "+stage, err)
		}

		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, errors.NewInternalError("SCHEMA_INVALID", "response schema is not JSON for "+stage, err)
		}

		out[stage] = &stageSchema{
			Stage:     stage,
			Raw:       raw,
			validator: validator,
			genai:     toGenaiSchema(doc),
		}
	}
	return out, nil
}

// Validate checks a model answer against the schema
func (s *stageSchema) Validate(doc []byte) error {
	result, err := s.validator.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return errors.NewAIError(errors.ErrCodeAIResponseInvalid,
			fmt.Sprintf("%s response is not valid JSON", s.Stage), err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return errors.NewAIError(errors.ErrCodeAIResponseInvalid,
		fmt.Sprintf("%s response does not match schema: %s", s.Stage, strings.Join(problems, "; ")), nil).
		WithContext("stage", s.Stage)
}

// Instructions renders the schema as prompt text for providers without native structured output
func (s *stageSchema) Instructions() string {
	return "Respond with a single JSON object and nothing else. It must validate against this JSON Schema:\n" + string(s.Raw)
}

// toGenaiSchema converts the subset of JSON Schema used in schemas/ into a Gemini response schema
func toGenaiSchema(doc map[string]any) *genai.Schema {
	schema := &genai.Schema{}

	switch t := doc["type"].(type) {
	case string:
		schema.Type = genaiType(t)
	case []any:
		for _, v := range t {
			name, _ := v.(string)
			if name == "null" {
				nullable := true
				schema.Nullable = &nullable
				continue
			}
			schema.Type = genaiType(name)
		}
	}

	if desc, ok := doc["description"].(string); ok {
		schema.Description = desc
	}

	if enum, ok := doc["enum"].([]any); ok {
		for _, v := range enum {
			if s, ok := v.(string); ok {
				schema.Enum = append(schema.Enum, s)
			}
		}
	}

	if props, ok := doc["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if child, ok := raw.(map[string]any); ok {
				schema.Properties[name] = toGenaiSchema(child)
			}
		}
	}

	if required, ok := doc["required"].([]any); ok {
		for _, v := range required {
			if s, ok := v.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}

	if items, ok := doc["items"].(map[string]any); ok {
		schema.Items = toGenaiSchema(items)
	}

	return schema
}

func genaiType(name string) genai.Type {
	switch name {
	case "object":
		return genai.TypeObject
	case "array":
		return genai.TypeArray
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeUnspecified
	}
}

// stripCodeFences removes a surrounding ``` or ```json fence that chat models like to add
func stripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 {
		trimmed = trimmed[nl+1:]
	} else {
		trimmed = strings.TrimPrefix(trimmed, "json")
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
