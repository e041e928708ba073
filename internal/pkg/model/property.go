package model

import "time"

// StateRecord is one entry of a node's write history.
type StateRecord struct {
	Id        int64     `json:"id"`
	TimeStamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
	Value     Value     `json:"value"`
	Ack       bool      `json:"ack"`
	From      string    `json:"from"`
}
type StateRecords []StateRecord
