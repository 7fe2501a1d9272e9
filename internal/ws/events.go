package ws

import (
	"time"
)

type EventType string

const (
	EventSessionUpdated EventType = "session.updated"
)

type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}
