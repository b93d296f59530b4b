package types

import "github.com/goccy/go-json"

// DebugStateElement is the JSON view of one entity and every component value
// currently attached to it.
type DebugStateElement struct {
	ID         EntityID                   `json:"id"`
	Components map[string]json.RawMessage `json:"components"`
}

// DebugStateResponse is the JSON view of an entire world, one element per
// live entity.
type DebugStateResponse []DebugStateElement
