package schema

import (
	"encoding/json"
	"fmt"
)

// Role identifies who produced a Turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleSystem, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// ToolRequest is one invocation proposed by the model.
//
// Arguments holds the decoded argument object. When the provider could not
// decode the wire string into an object, Arguments is nil and RawArguments
// keeps the original text so the tool can answer with an argument error.
type ToolRequest struct {
	ID           string
	Name         string
	Arguments    map[string]any
	RawArguments string
}

// ArgumentsJSON returns the JSON-encoded argument string sent back on the wire.
func (tr ToolRequest) ArgumentsJSON() string {
	if tr.Arguments == nil && tr.RawArguments != "" {
		return tr.RawArguments
	}
	if tr.Arguments == nil {
		return "{}"
	}
	b, err := json.Marshal(tr.Arguments)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Clone returns a copy whose Arguments map is independent of tr's.
func (tr ToolRequest) Clone() ToolRequest {
	out := tr
	if tr.Arguments != nil {
		out.Arguments = make(map[string]any, len(tr.Arguments))
		for k, v := range tr.Arguments {
			out.Arguments[k] = v
		}
	}
	return out
}

// Turn is one entry in the conversation.
//
// Content is nil only for assistant turns that carry tool requests instead of
// text. ToolRequests is set on assistant turns; ToolRequestID and ToolName on
// tool turns.
type Turn struct {
	Role          Role
	Content       *string
	ToolRequests  []ToolRequest
	ToolRequestID string
	ToolName      string
}

func NewSystemTurn(content string) Turn {
	return Turn{Role: RoleSystem, Content: &content}
}

func NewUserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: &content}
}

// NewAssistantTurn builds an assistant turn. content may be nil when requests
// is non-empty.
func NewAssistantTurn(content *string, requests []ToolRequest) Turn {
	t := Turn{Role: RoleAssistant, Content: content}
	if len(requests) > 0 {
		t.ToolRequests = make([]ToolRequest, len(requests))
		for i, r := range requests {
			t.ToolRequests[i] = r.Clone()
		}
	}
	return t
}

// NewToolTurn builds the answer to the request identified by requestID.
func NewToolTurn(requestID, toolName, content string) Turn {
	return Turn{
		Role:          RoleTool,
		Content:       &content,
		ToolRequestID: requestID,
		ToolName:      toolName,
	}
}

// Text returns the content, or "" when the turn has none.
func (t Turn) Text() string {
	if t.Content == nil {
		return ""
	}
	return *t.Content
}

// HasToolRequests reports whether t asks for at least one tool invocation.
func (t Turn) HasToolRequests() bool { return len(t.ToolRequests) > 0 }

// Clone returns a deep copy of t.
func (t Turn) Clone() Turn {
	out := t
	if t.Content != nil {
		c := *t.Content
		out.Content = &c
	}
	if t.ToolRequests != nil {
		out.ToolRequests = make([]ToolRequest, len(t.ToolRequests))
		for i, r := range t.ToolRequests {
			out.ToolRequests[i] = r.Clone()
		}
	}
	return out
}

// Validate checks the invariants that can be decided from the turn alone.
// Cross-turn rules (request id references) are enforced by the log.
func (t Turn) Validate() error {
	if !t.Role.Valid() {
		return fmt.Errorf("unknown role %q", t.Role)
	}

	switch t.Role {
	case RoleUser, RoleSystem:
		if t.Content == nil {
			return fmt.Errorf("%s turn requires content", t.Role)
		}
		if len(t.ToolRequests) > 0 || t.ToolRequestID != "" {
			return fmt.Errorf("%s turn cannot carry tool fields", t.Role)
		}
	case RoleAssistant:
		if t.Content == nil && len(t.ToolRequests) == 0 {
			return fmt.Errorf("assistant turn has neither content nor tool requests")
		}
		if t.ToolRequestID != "" {
			return fmt.Errorf("assistant turn cannot carry a tool request id")
		}
		seen := make(map[string]struct{}, len(t.ToolRequests))
		for i, r := range t.ToolRequests {
			if r.ID == "" {
				return fmt.Errorf("tool request %d has an empty id", i)
			}
			if _, dup := seen[r.ID]; dup {
				return fmt.Errorf("tool request id %q repeated within one turn", r.ID)
			}
			seen[r.ID] = struct{}{}
		}
	case RoleTool:
		if t.Content == nil {
			return fmt.Errorf("tool turn requires content")
		}
		if t.ToolRequestID == "" {
			return fmt.Errorf("tool turn requires a tool request id")
		}
		if len(t.ToolRequests) > 0 {
			return fmt.Errorf("tool turn cannot carry tool requests")
		}
	}
	return nil
}
