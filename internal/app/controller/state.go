package controller

import "github.com/osa030/cuebox/internal/app/playdata"

// State represents the playback state of a group.
type State int

const (
	StateIdle    State = iota // Nothing playing
	StatePlaying              // At least one part running
	StatePaused               // Every active part is paused
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// StateOf derives the group state from its play data.
func StateOf(data playdata.GroupPlayData) State {
	switch {
	case !data.AnyPartIsPlaying:
		return StateIdle
	case data.AllPlayingPartsArePaused:
		return StatePaused
	default:
		return StatePlaying
	}
}
