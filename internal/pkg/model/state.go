package model

import "time"

const (
	ObjectTypeState = "state"
	RoleIndicator   = "indicator"

	// FromSystem marks writes originating from the poll cycle.
	FromSystem = "system.sync"
)

// Declaration describes a state node before it exists in the store.
type Declaration struct {
	// ID is the path relative to the store namespace.
	ID     string `json:"_id"`
	Type   string `json:"type"`
	Common Common `json:"common"`
	Native Native `json:"native"`
}

type Common struct {
	Name  string `json:"name"`
	Type  Kind   `json:"type"`
	Role  string `json:"role"`
	Read  bool   `json:"read"`
	Write bool   `json:"write"`
}

type Native struct {
	ID string `json:"id"`
}

// State is the current value of a node. Ack is true when the value reflects
// confirmed remote state and false for a pending user write.
type State struct {
	Val  Value     `json:"val"`
	Ack  bool      `json:"ack"`
	TS   time.Time `json:"ts"`
	From string    `json:"from,omitempty"`
}
