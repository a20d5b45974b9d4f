// Package schema contains the contracts shared across toolagent packages:
// turns, tool schemas, the completion boundary and the error taxonomy.
package schema

import (
	"bytes"
	"encoding/json"
)

// Schema type tags understood by function-calling models.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeArray   = "array"
	TypeObject  = "object"
	TypeNull    = "null"
)

// PropertySchema describes one parameter inside ObjectSchema.Properties.
type PropertySchema struct {
	Name        string
	Type        string
	Description string
	Enum        []string
}

// Properties is an ordered set of parameter schemas. It marshals to a JSON
// object whose keys keep declaration order.
type Properties []PropertySchema

func (p Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, prop := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(prop.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		body := map[string]any{"type": prop.Type}
		if prop.Description != "" {
			body["description"] = prop.Description
		}
		if len(prop.Enum) > 0 {
			body["enum"] = prop.Enum
		}
		val, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ObjectSchema is the JSON-Schema object describing a tool's parameters.
type ObjectSchema struct {
	Type                 string     `json:"type"`
	Properties           Properties `json:"properties"`
	Required             []string   `json:"required"`
	AdditionalProperties bool       `json:"additionalProperties"`
}

// ToolSchema is what the model sees for one tool.
type ToolSchema struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Parameters  ObjectSchema `json:"parameters"`
}

// Clone returns a copy that shares no slices with s.
func (s ToolSchema) Clone() ToolSchema {
	out := s
	out.Parameters.Properties = make(Properties, len(s.Parameters.Properties))
	for i, p := range s.Parameters.Properties {
		cp := p
		if p.Enum != nil {
			cp.Enum = append([]string(nil), p.Enum...)
		}
		out.Parameters.Properties[i] = cp
	}
	out.Parameters.Required = append(make([]string, 0, len(s.Parameters.Required)), s.Parameters.Required...)
	return out
}

// ParametersJSON returns the parameter schema as raw JSON bytes.
func (s ToolSchema) ParametersJSON() json.RawMessage {
	b, err := json.Marshal(s.Parameters)
	if err != nil {
		return json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return b
}

// ParametersMap returns the parameter schema as a generic map, the shape SDK
// clients expect.
func (s ToolSchema) ParametersMap() map[string]any {
	var out map[string]any
	if err := json.Unmarshal(s.ParametersJSON(), &out); err != nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return out
}

// ToWireMap serialises the schema into the OpenAI function-calling tool shape.
func (s ToolSchema) ToWireMap() map[string]any {
	return map[string]any{
		"type": "function",
		"function": map[string]any{
			"name":        s.Name,
			"description": s.Description,
			"parameters":  json.RawMessage(s.ParametersJSON()),
		},
	}
}
