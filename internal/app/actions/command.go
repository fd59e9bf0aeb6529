package actions

import (
	"github.com/osa030/cuebox/internal/domain/rundown"
)

// Op identifies the operation that produced a command.
type Op int

const (
	OpPlayPart Op = iota
	OpPausePart
	OpStopPart
	OpPlayStopPart
	OpPlayGroup
	OpStopGroup
	OpPlayNext
	OpPlayPrev
	OpActivateSchedule
)

// String returns the string representation of the operation.
func (o Op) String() string {
	switch o {
	case OpPlayPart:
		return "play_part"
	case OpPausePart:
		return "pause_part"
	case OpStopPart:
		return "stop_part"
	case OpPlayStopPart:
		return "play_stop_part"
	case OpPlayGroup:
		return "play_group"
	case OpStopGroup:
		return "stop_group"
	case OpPlayNext:
		return "play_next"
	case OpPlayPrev:
		return "play_prev"
	case OpActivateSchedule:
		return "activate_schedule"
	default:
		return "unknown"
	}
}

// Command records a state transition of a group's playout.
// Apply replays the transition and Revert undoes it.
type Command struct {
	ID      string
	Op      Op
	GroupID string
	PartID  string // Empty for group-level operations
	At      int64  // When the command was issued, epoch ms
	Before  rundown.Playout
	After   rundown.Playout
}

// Apply returns the group with the command's resulting playout state.
func (c Command) Apply(g rundown.Group) rundown.Group {
	return g.WithPlayout(c.After)
}

// Revert returns the group with the playout state preceding the command.
func (c Command) Revert(g rundown.Group) rundown.Group {
	return g.WithPlayout(c.Before)
}

// Changed returns true if the command modified the playout state.
func (c Command) Changed() bool {
	if len(c.Before.PlayingParts) != len(c.After.PlayingParts) {
		return true
	}
	for id, before := range c.Before.PlayingParts {
		after, ok := c.After.PlayingParts[id]
		if !ok || !samePlayingPart(before, after) {
			return true
		}
	}
	return false
}

func samePlayingPart(a, b rundown.PlayingPart) bool {
	return a.StartTime == b.StartTime &&
		a.FromSchedule == b.FromSchedule &&
		sameMs(a.PauseTime, b.PauseTime) &&
		sameMs(a.StopTime, b.StopTime)
}

func sameMs(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
