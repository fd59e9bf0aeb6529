package notification

import (
	"github.com/osa030/cuebox/internal/app/actions"
	"github.com/osa030/cuebox/internal/app/playdata"
)

// MessageType represents a notification message type.
type MessageType int

const (
	MessageStateChanged      MessageType = iota // A command changed a group's playout
	MessageScheduleActivated                    // A schedule started a group
	MessageUndone                               // A command was reverted
	MessageRedone                               // A reverted command was applied again
)

// String returns the string representation of the message type.
func (t MessageType) String() string {
	switch t {
	case MessageStateChanged:
		return "state_changed"
	case MessageScheduleActivated:
		return "schedule_activated"
	case MessageUndone:
		return "undone"
	case MessageRedone:
		return "redone"
	default:
		return "unknown"
	}
}

// Message represents a playout notification.
type Message struct {
	Type       MessageType
	GroupID    string
	PartID     string
	Command    actions.Command
	PlayData   playdata.GroupPlayData // Play data of the group when the message was sent
	SequenceNo uint64
}
