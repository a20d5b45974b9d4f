// Package conversation holds the ordered, append-only record of turns for one
// session.
package conversation

import (
	"sync"

	"github.com/crystaldolphin/toolagent/internal/schema"
)

// Log is the append-only turn sequence of one session.
//
// Append enforces the turn invariants, including that every tool turn answers
// a request emitted earlier and not yet answered. Reads return deep copies.
type Log struct {
	mu      sync.RWMutex
	turns   []schema.Turn
	pending []schema.ToolRequest // emitted, not yet answered; emission order
	seen    map[string]struct{}  // every request id emitted since the last reset
}

// NewLog returns an empty Log.
func NewLog() *Log {
	return &Log{seen: make(map[string]struct{})}
}

// Append adds turn to the end of the log. It returns *schema.InvalidTurnError
// when the turn breaks an invariant; the log is unchanged in that case.
func (l *Log) Append(turn schema.Turn) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := len(l.turns)
	invalid := func(reason string) error {
		return &schema.InvalidTurnError{Index: idx, Role: turn.Role, Reason: reason}
	}

	if err := turn.Validate(); err != nil {
		return invalid(err.Error())
	}

	switch turn.Role {
	case schema.RoleAssistant:
		for _, r := range turn.ToolRequests {
			if _, dup := l.seen[r.ID]; dup {
				return invalid("tool request id " + r.ID + " was already used in this conversation")
			}
		}
		for _, r := range turn.ToolRequests {
			l.seen[r.ID] = struct{}{}
			l.pending = append(l.pending, r.Clone())
		}
	case schema.RoleTool:
		pos := l.pendingIndex(turn.ToolRequestID)
		if pos < 0 {
			return invalid("tool request id " + turn.ToolRequestID + " does not match an unanswered request")
		}
		l.pending = append(l.pending[:pos], l.pending[pos+1:]...)
	}

	l.turns = append(l.turns, turn.Clone())
	return nil
}

func (l *Log) pendingIndex(id string) int {
	for i, r := range l.pending {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// All returns a snapshot of every turn. Mutating the result never affects
// the log.
func (l *Log) All() []schema.Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]schema.Turn, len(l.turns))
	for i, t := range l.turns {
		out[i] = t.Clone()
	}
	return out
}

// Last returns the most recent turn; ok is false on an empty log.
func (l *Log) Last() (turn schema.Turn, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.turns) == 0 {
		return schema.Turn{}, false
	}
	return l.turns[len(l.turns)-1].Clone(), true
}

// Len returns the number of turns.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.turns)
}

// Pending returns the requests that have no tool turn yet, in emission order.
func (l *Log) Pending() []schema.ToolRequest {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]schema.ToolRequest, len(l.pending))
	for i, r := range l.pending {
		out[i] = r.Clone()
	}
	return out
}

// Reset clears every turn.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.turns = nil
	l.pending = nil
	l.seen = make(map[string]struct{})
}
