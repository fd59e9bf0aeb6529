// Package playdata turns a group's configuration and playout state into a
// time-queryable description of what is, or will be, playing.
//
// Prepare walks a group once and produces an immutable PreparedPlayData.
// Query evaluates that snapshot at any instant without recomputation.
// Neither function reads the clock.
package playdata

import "github.com/cockroachdb/errors"

// ErrInvalidConfiguration is returned when a group cannot be resolved into
// a bounded set of sections.
var ErrInvalidConfiguration = errors.New("invalid group configuration")

// EndAction describes what happens when a section reaches its end.
type EndAction int

const (
	EndActionStop        EndAction = iota // Playout stops
	EndActionNextSection                  // The following section takes over
	EndActionLoopSelf                     // The section restarts
	EndActionInfinite                     // The section never ends
)

// String returns the string representation of the end action.
func (a EndAction) String() string {
	switch a {
	case EndActionStop:
		return "stop"
	case EndActionNextSection:
		return "next_section"
	case EndActionLoopSelf:
		return "loop_self"
	case EndActionInfinite:
		return "infinite"
	default:
		return "unknown"
	}
}

// PartEndAction describes what happens when a playing part reaches its end.
type PartEndAction int

const (
	PartEndStop     PartEndAction = iota // Nothing follows
	PartEndNextPart                      // Another part starts
	PartEndLoopSelf                      // The part restarts
	PartEndInfinite                      // The part never ends
)

// String returns the string representation of the part end action.
func (a PartEndAction) String() string {
	switch a {
	case PartEndStop:
		return "stop"
	case PartEndNextPart:
		return "next_part"
	case PartEndLoopSelf:
		return "loop_self"
	case PartEndInfinite:
		return "infinite"
	default:
		return "unknown"
	}
}

// Kind tags the variant of PreparedPlayData.
type Kind int

const (
	KindSingle Kind = iota // One-at-a-time group: an ordered chain of sections
	KindMulti              // Multi-play group: one independent section per part
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindMulti:
		return "multi"
	default:
		return "unknown"
	}
}

// SectionPart places a part inside a section.
type SectionPart struct {
	PartID   string
	Offset   int64  // Start of the part relative to the section start, ms
	Duration *int64 // nil means infinite
}

// Section is one continuous play interval.
// Sections are built by Prepare and must be treated as read-only.
type Section struct {
	StartTime int64  // Absolute start, epoch ms
	PauseTime *int64 // Frozen offset into the section, nil if running
	StopTime  *int64 // Absolute time the section is cut short, nil if not cut
	EndTime   *int64 // Absolute end of the first run, nil if infinite
	Duration  *int64 // Length of one run, nil if infinite
	Repeating bool   // Restarts after Duration until StopTime
	Schedule  bool   // Originates from a scheduled start
	EndAction EndAction
	Parts     []SectionPart
}

// IsEmpty returns true for sections without parts (loop bootstrap sections).
func (s Section) IsEmpty() bool {
	return len(s.Parts) == 0
}

// PreparedPlayData is the immutable output of Prepare.
type PreparedPlayData struct {
	Kind     Kind
	Sections []Section         // KindSingle
	Parts    map[string]Section // KindMulti, keyed by part ID
}

// Playhead is the live position inside an active part.
type Playhead struct {
	PartID        string
	PlayheadTime  int64  // Elapsed time into the part, frozen while paused
	PartStartTime int64  // Absolute start of the current run of the part
	PartPauseTime *int64 // Frozen playhead, nil if running
	PartEndTime   *int64 // Absolute end of the current run, nil if infinite
	PartDuration  *int64 // nil if infinite
	EndAction     PartEndAction
	FromSchedule  bool
}

// Countdown is an upcoming start of a part.
type Countdown struct {
	Duration  int64 // Time left until the start, ms
	Timestamp int64 // Absolute start, epoch ms
}

// GroupPlayData is the point-in-time answer returned by Query.
type GroupPlayData struct {
	GroupIsPlaying           bool
	AnyPartIsPlaying         bool
	AllPlayingPartsArePaused bool
	Playheads                map[string]Playhead
	Countdowns               map[string][]Countdown
	SectionEndTime           *int64 // KindSingle only
	SectionTimeToEnd         *int64 // KindSingle only, nil if infinite
	SectionEndAction         *EndAction
}

func ms(v int64) *int64 {
	return &v
}
