package tools

import (
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/crystaldolphin/toolagent/internal/schema"
)

// argValidator checks coerced arguments against the tool's own JSON schema,
// catching what per-value coercion cannot (enums, additionalProperties).
type argValidator struct {
	compiled *gojsonschema.Schema
}

func newArgValidator(ts schema.ToolSchema) (*argValidator, error) {
	doc := ts.ParametersMap()
	if req, ok := doc["required"].([]any); ok && len(req) == 0 {
		delete(doc, "required")
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, err
	}
	return &argValidator{compiled: compiled}, nil
}

func (v *argValidator) validate(tool string, args Args) error {
	result, err := v.compiled.Validate(gojsonschema.NewGoLoader(map[string]any(args)))
	if err != nil {
		return &schema.ArgumentError{Tool: tool, Reason: err.Error()}
	}
	if result.Valid() {
		return nil
	}

	errs := result.Errors()
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.String())
	}
	param := ""
	if len(errs) == 1 && errs[0].Field() != "(root)" {
		param = errs[0].Field()
	}
	return &schema.ArgumentError{Tool: tool, Param: param, Reason: strings.Join(msgs, "; ")}
}
