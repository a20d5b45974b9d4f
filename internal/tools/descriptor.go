// Package tools describes callable tools to the model and invokes them by
// name.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/crystaldolphin/toolagent/internal/schema"
)

// ParamType is the declared type of a tool parameter.
type ParamType string

const (
	String  ParamType = schema.TypeString
	Number  ParamType = schema.TypeNumber
	Integer ParamType = schema.TypeInteger
	Boolean ParamType = schema.TypeBoolean
	Array   ParamType = schema.TypeArray
	Object  ParamType = schema.TypeObject
	Null    ParamType = schema.TypeNull
)

// schemaType maps the declared type to a schema tag. Anything undeclared or
// unknown is described as a string.
func (t ParamType) schemaType() string {
	switch t {
	case String, Number, Integer, Boolean, Array, Object, Null:
		return string(t)
	}
	return schema.TypeString
}

// Param declares one named parameter.
//
// A parameter is required unless it is Optional or has a Default. A missing
// parameter with a Default receives that value before the tool runs.
type Param struct {
	Name        string
	Type        ParamType
	Description string
	Optional    bool
	Default     any
	Enum        []string
}

func (p Param) required() bool { return !p.Optional && p.Default == nil }

// Func is the callable wrapped by a Descriptor. args holds coerced values:
// float64 for number, int64 for integer, bool, string, []any and
// map[string]any.
type Func func(ctx context.Context, args Args) (any, error)

var reToolName = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// Descriptor binds a Func to the schema the model sees.
// It is immutable once built and safe for concurrent use.
type Descriptor struct {
	name        string
	description string
	params      []Param
	fn          Func
	described   schema.ToolSchema
	validator   *argValidator
}

// New builds a Descriptor. Parameter order in the schema follows the order
// of params. Defaults are converted to their parameter's type. It fails with
// a *schema.ConfigurationError for an invalid name, a nil fn, a repeated
// parameter name or a default that does not fit its type.
func New(name, description string, fn Func, params ...Param) (*Descriptor, error) {
	if !reToolName.MatchString(name) {
		return nil, &schema.ConfigurationError{Msg: fmt.Sprintf("invalid tool name %q", name)}
	}
	if fn == nil {
		return nil, &schema.ConfigurationError{Msg: fmt.Sprintf("tool %q has no function", name)}
	}

	seen := make(map[string]struct{}, len(params))
	declared := make([]Param, len(params))
	for i, p := range params {
		if p.Name == "" {
			return nil, &schema.ConfigurationError{Msg: fmt.Sprintf("tool %q declares a parameter without a name", name)}
		}
		if _, dup := seen[p.Name]; dup {
			return nil, &schema.ConfigurationError{Msg: fmt.Sprintf("tool %q declares parameter %q twice", name, p.Name)}
		}
		seen[p.Name] = struct{}{}

		if p.Default != nil {
			v, err := coerceValue(p.Type, p.Default)
			if err != nil {
				return nil, &schema.ConfigurationError{
					Msg: fmt.Sprintf("tool %q parameter %q default", name, p.Name),
					Err: err,
				}
			}
			p.Default = v
		}
		declared[i] = p
	}

	d := &Descriptor{
		name:        name,
		description: description,
		params:      declared,
		fn:          fn,
	}
	d.described = d.buildSchema()

	v, err := newArgValidator(d.described)
	if err != nil {
		return nil, &schema.ConfigurationError{Msg: fmt.Sprintf("tool %q schema", name), Err: err}
	}
	d.validator = v

	return d, nil
}

// MustNew is like New but panics on error. Intended for built-in tools whose
// declaration is fixed at compile time.
func MustNew(name, description string, fn Func, params ...Param) *Descriptor {
	d, err := New(name, description, fn, params...)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Descriptor) Name() string        { return d.name }
func (d *Descriptor) Description() string { return d.description }

// Params returns a copy of the declared parameters.
func (d *Descriptor) Params() []Param { return append([]Param(nil), d.params...) }

// Describe returns the function-calling schema for this tool. The schema is
// computed once at construction; each call returns an independent copy.
func (d *Descriptor) Describe() schema.ToolSchema { return d.described.Clone() }

func (d *Descriptor) buildSchema() schema.ToolSchema {
	props := make(schema.Properties, 0, len(d.params))
	required := make([]string, 0, len(d.params))
	for _, p := range d.params {
		props = append(props, schema.PropertySchema{
			Name:        p.Name,
			Type:        p.Type.schemaType(),
			Description: p.Description,
			Enum:        p.Enum,
		})
		if p.required() {
			required = append(required, p.Name)
		}
	}
	return schema.ToolSchema{
		Name:        d.name,
		Description: d.description,
		Parameters: schema.ObjectSchema{
			Type:                 schema.TypeObject,
			Properties:           props,
			Required:             required,
			AdditionalProperties: false,
		},
	}
}

// Invoke runs the tool with the given named arguments and returns the result
// rendered as text.
//
// It returns *schema.ArgumentError when a required parameter is missing, an
// undeclared parameter is present or a value cannot be coerced to its
// declared type, and *schema.ExecutionError when the function fails or
// panics.
func (d *Descriptor) Invoke(ctx context.Context, arguments map[string]any) (result string, err error) {
	args, err := d.coerce(arguments)
	if err != nil {
		return "", err
	}
	if err := d.validator.validate(d.name, args); err != nil {
		return "", err
	}

	defer func() {
		if r := recover(); r != nil {
			result = ""
			err = &schema.ExecutionError{Tool: d.name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	out, err := d.fn(ctx, args)
	if err != nil {
		return "", &schema.ExecutionError{Tool: d.name, Err: err}
	}
	return Stringify(out), nil
}

func (d *Descriptor) coerce(arguments map[string]any) (Args, error) {
	declared := make(map[string]struct{}, len(d.params))
	for _, p := range d.params {
		declared[p.Name] = struct{}{}
	}
	for k := range arguments {
		if _, ok := declared[k]; !ok {
			return nil, &schema.ArgumentError{Tool: d.name, Param: k, Reason: "unknown parameter"}
		}
	}

	args := make(Args, len(d.params))
	for _, p := range d.params {
		raw, present := arguments[p.Name]
		if !present {
			switch {
			case p.Default != nil:
				args[p.Name] = p.Default
			case p.required():
				return nil, &schema.ArgumentError{Tool: d.name, Param: p.Name, Reason: "missing required parameter"}
			}
			continue
		}
		v, err := coerceValue(p.Type, raw)
		if err != nil {
			return nil, &schema.ArgumentError{Tool: d.name, Param: p.Name, Reason: err.Error()}
		}
		args[p.Name] = v
	}
	return args, nil
}

// Stringify renders a tool result as the content of a tool turn.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
