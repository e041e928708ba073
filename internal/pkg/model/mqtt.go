package model

type RegisterDevice struct {
	Name         string   `json:"name"`
	Identifiers  []string `json:"identifiers"`
	Model        string   `json:"model"`
	Manufacturer string   `json:"manufacturer"`
}

// RegisterMessage is the discovery config published once per state node.
type RegisterMessage struct {
	Tilda        string         `json:"~"`
	Name         string         `json:"name"`
	ID           string         `json:"unique_id"`
	StateTopic   string         `json:"state_topic"`
	CommandTopic string         `json:"command_topic,omitempty"`
	ValueTmpl    string         `json:"value_template"`
	PayloadOn    string         `json:"payload_on,omitempty"`
	PayloadOff   string         `json:"payload_off,omitempty"`
	Device       RegisterDevice `json:"device"`
}

// StatePayload is the retained message published on a node's state topic.
type StatePayload struct {
	Val  any    `json:"val"`
	Ack  bool   `json:"ack"`
	TS   int64  `json:"ts"`
	From string `json:"from,omitempty"`
}
