package relay

import (
	"github.com/clawdgotchi/hookbridge/internal/event"
)

type MessageType string

const (
	MsgSnapshot MessageType = "snapshot"
	MsgRecord   MessageType = "record"
)

type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

type SnapshotPayload struct {
	Sessions []event.Record `json:"sessions"`
}
