package rundown

import "github.com/cockroachdb/errors"

// Errors
var (
	ErrGroupNotFound = errors.New("group not found")
	ErrPartNotFound  = errors.New("part not found")
)

// Group is an ordered sequence of parts sharing a playback configuration.
type Group struct {
	ID         string
	Name       string
	Parts      []Part
	OneAtATime bool      // Playlist mode, at most one part active
	AutoPlay   bool      // Chain to the next part when one ends
	Loop       bool      // Wrap to the first part after the last one
	Disabled   bool      // Group cannot be played
	Locked     bool      // Rejected by the command layer
	Schedule   *Schedule // Optional scheduled activation
	Playout    Playout
}

// Clone returns a deep copy of the group.
func (g Group) Clone() Group {
	c := g
	c.Parts = make([]Part, len(g.Parts))
	for i, p := range g.Parts {
		c.Parts[i] = p
		if p.Duration != nil {
			c.Parts[i].Duration = Ms(*p.Duration)
		}
	}
	if g.Schedule != nil {
		s := *g.Schedule
		if s.RepeatUntil != nil {
			s.RepeatUntil = Ms(*s.RepeatUntil)
		}
		c.Schedule = &s
	}
	c.Playout = g.Playout.Clone()
	return c
}

// WithPlayout returns a copy of the group using the given playout state.
func (g Group) WithPlayout(p Playout) Group {
	c := g.Clone()
	c.Playout = p.Clone()
	return c
}

// PartIndex returns the index of the part, or -1.
func (g Group) PartIndex(partID string) int {
	for i, p := range g.Parts {
		if p.ID == partID {
			return i
		}
	}
	return -1
}

// Part returns the part with the given ID.
func (g Group) Part(partID string) (Part, error) {
	i := g.PartIndex(partID)
	if i < 0 {
		return Part{}, errors.Wrapf(ErrPartNotFound, "group %s: part %s", g.ID, partID)
	}
	return g.Parts[i], nil
}

// FirstPlayableIndex returns the index of the first enabled part, or -1.
func (g Group) FirstPlayableIndex() int {
	return g.NextPlayableIndex(-1, false)
}

// LastPlayableIndex returns the index of the last enabled part, or -1.
func (g Group) LastPlayableIndex() int {
	return g.PrevPlayableIndex(len(g.Parts), false)
}

// NextPlayableIndex returns the index of the first enabled part after from.
// With wrap set, the search continues from the start of the group but never
// returns from itself unless it is the only enabled part.
func (g Group) NextPlayableIndex(from int, wrap bool) int {
	for i := from + 1; i < len(g.Parts); i++ {
		if !g.Parts[i].Disabled {
			return i
		}
	}
	if !wrap {
		return -1
	}
	for i := 0; i <= from && i < len(g.Parts); i++ {
		if !g.Parts[i].Disabled {
			return i
		}
	}
	return -1
}

// PrevPlayableIndex returns the index of the last enabled part before from.
func (g Group) PrevPlayableIndex(from int, wrap bool) int {
	for i := from - 1; i >= 0; i-- {
		if i < len(g.Parts) && !g.Parts[i].Disabled {
			return i
		}
	}
	if !wrap {
		return -1
	}
	for i := len(g.Parts) - 1; i >= from && i >= 0; i-- {
		if !g.Parts[i].Disabled {
			return i
		}
	}
	return -1
}

// PlayingEntries returns the playing parts in group order.
// Entries whose part no longer exists are skipped.
func (g Group) PlayingEntries() []PlayingEntry {
	entries := make([]PlayingEntry, 0, len(g.Playout.PlayingParts))
	for i, p := range g.Parts {
		if pp, ok := g.Playout.PlayingParts[p.ID]; ok {
			entries = append(entries, PlayingEntry{Index: i, Part: p, Playing: pp})
		}
	}
	return entries
}

// PlayingEntry couples a playing part with its definition.
type PlayingEntry struct {
	Index   int
	Part    Part
	Playing PlayingPart
}
