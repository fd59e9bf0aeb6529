// Package rundown provides the Part and Group domain entities and the rundown arena.
//
// All timestamps are integer milliseconds since the Unix epoch and all durations are
// integer milliseconds.
package rundown

// Part represents a playable cue (a clip, a graphics template, ...).
type Part struct {
	ID       string // Part ID, unique within its group
	Name     string // Display name
	Duration *int64 // Duration in ms, nil means infinite
	Loop     bool   // Restart the part when it ends
	Disabled bool   // Skipped when searching for the next part
	Locked   bool   // Rejected by the command layer
}

// IsInfinite returns true if the part never ends on its own.
func (p Part) IsInfinite() bool {
	return p.Duration == nil
}

// DurationOrZero returns the duration, or 0 for infinite parts.
func (p Part) DurationOrZero() int64 {
	if p.Duration == nil {
		return 0
	}
	return *p.Duration
}

// Ms returns a pointer to the given millisecond value.
func Ms(v int64) *int64 {
	return &v
}

// PlayingPart is the mutable, time-bearing record of an active part.
type PlayingPart struct {
	StartTime    int64  // When the part (re)started, epoch ms
	PauseTime    *int64 // Offset into the part where it was paused, nil if playing
	StopTime     *int64 // When it was stopped, epoch ms, nil if not stopped
	FromSchedule bool   // Started by a schedule activation
}

// IsPaused returns true if the part is paused.
func (pp PlayingPart) IsPaused() bool {
	return pp.PauseTime != nil
}

// IsStopped returns true if the part has been stopped at or before now.
func (pp PlayingPart) IsStopped(now int64) bool {
	return pp.StopTime != nil && *pp.StopTime <= now
}

// Playhead returns the elapsed time into the part at now, ignoring loops.
func (pp PlayingPart) Playhead(now int64) int64 {
	if pp.PauseTime != nil {
		return *pp.PauseTime
	}
	return now - pp.StartTime
}

// Playout holds the playing parts of a group.
type Playout struct {
	PlayingParts map[string]PlayingPart
}

// Clone returns a deep copy of the playout state.
func (p Playout) Clone() Playout {
	parts := make(map[string]PlayingPart, len(p.PlayingParts))
	for id, pp := range p.PlayingParts {
		c := pp
		if pp.PauseTime != nil {
			c.PauseTime = Ms(*pp.PauseTime)
		}
		if pp.StopTime != nil {
			c.StopTime = Ms(*pp.StopTime)
		}
		parts[id] = c
	}
	return Playout{PlayingParts: parts}
}

// IsEmpty returns true if nothing is recorded as playing.
func (p Playout) IsEmpty() bool {
	return len(p.PlayingParts) == 0
}
