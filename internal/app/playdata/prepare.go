package playdata

import (
	"github.com/cockroachdb/errors"

	"github.com/osa030/cuebox/internal/domain/rundown"
)

// chainLimitFactor bounds a one-at-a-time chain to factor × number of parts.
const chainLimitFactor = 2

// Prepare resolves the group at now into prepared play data.
// It returns nil when the group is idle: nothing playing and nothing scheduled.
// The group is never modified.
func Prepare(g rundown.Group, now int64) (*PreparedPlayData, error) {
	if g.OneAtATime {
		return prepareSingle(g, now)
	}
	return prepareMulti(g, now), nil
}

func prepareSingle(g rundown.Group, now int64) (*PreparedPlayData, error) {
	limit := chainLimitFactor * len(g.Parts)
	var sections []Section

	if entries := g.PlayingEntries(); len(entries) > 0 {
		// At most one entry exists in one-at-a-time mode; group order decides otherwise.
		active := entries[0]
		chain, err := buildChain(g, active.Index, active.Playing.StartTime, active.Playing.FromSchedule, limit)
		if err != nil {
			return nil, err
		}
		if active.Playing.PauseTime != nil {
			applyPause(chain, *active.Playing.PauseTime)
		}
		if active.Playing.StopTime != nil {
			chain = applyStop(chain, *active.Playing.StopTime)
		}
		sections = chain
	}

	if next, ok := pendingOccurrence(g, now); ok {
		if first := g.FirstPlayableIndex(); first >= 0 {
			scheduled, err := buildChain(g, first, next, true, limit)
			if err != nil {
				return nil, err
			}
			sections = append(cutAt(sections, next), scheduled...)
		}
	}

	if len(sections) == 0 {
		return nil, nil
	}
	return &PreparedPlayData{Kind: KindSingle, Sections: sections}, nil
}

// pendingOccurrence returns the next scheduled start of the group after now.
// A disabled group never starts on its own.
func pendingOccurrence(g rundown.Group, now int64) (int64, bool) {
	if g.Schedule == nil || g.Disabled {
		return 0, false
	}
	return g.Schedule.NextOccurrence(now)
}

// buildChain lays out the parts played back-to-back from index start.
func buildChain(g rundown.Group, start int, startTime int64, fromSchedule bool, limit int) ([]Section, error) {
	var sections []Section
	cur := Section{StartTime: startTime, Schedule: fromSchedule}
	t := startTime
	idx := start

	closeSection := func(action EndAction) {
		cur.EndTime = ms(t)
		cur.Duration = ms(t - cur.StartTime)
		cur.EndAction = action
		sections = append(sections, cur)
	}

	for steps := 1; ; steps++ {
		if steps > limit {
			return nil, errors.Wrapf(ErrInvalidConfiguration,
				"group %s: chain exceeds %d parts", g.ID, limit)
		}

		part := g.Parts[idx]
		offset := t - cur.StartTime

		if part.IsInfinite() {
			cur.Parts = append(cur.Parts, SectionPart{PartID: part.ID, Offset: offset})
			cur.EndTime = nil
			cur.Duration = nil
			cur.EndAction = EndActionInfinite
			return append(sections, cur), nil
		}

		dur := *part.Duration

		if part.Loop && dur > 0 {
			closeSection(EndActionNextSection)
			sections = append(sections, Section{
				StartTime: t,
				EndTime:   ms(t + dur),
				Duration:  ms(dur),
				Repeating: true,
				Schedule:  fromSchedule,
				EndAction: EndActionLoopSelf,
				Parts:     []SectionPart{{PartID: part.ID, Duration: ms(dur)}},
			})
			return sections, nil
		}

		cur.Parts = append(cur.Parts, SectionPart{PartID: part.ID, Offset: offset, Duration: ms(dur)})
		t += dur

		if !g.AutoPlay {
			closeSection(EndActionStop)
			return sections, nil
		}

		next := g.NextPlayableIndex(idx, false)
		if next < 0 && g.Loop {
			cycle, state := cycleSection(g, t, fromSchedule)
			switch state {
			case cycleClosed:
				closeSection(EndActionNextSection)
				return append(sections, cycle), nil
			case cycleEmpty:
				closeSection(EndActionStop)
				return sections, nil
			case cycleOpen:
				// A looping or infinite part ends the chain during the next pass.
				next = g.FirstPlayableIndex()
			}
		}
		if next < 0 {
			closeSection(EndActionStop)
			return sections, nil
		}
		idx = next
	}
}

type cycleState int

const (
	cycleClosed cycleState = iota // Every playable part has a finite duration and does not loop
	cycleOpen                     // A playable part loops or is infinite
	cycleEmpty                    // No playable part or a zero total duration
)

// cycleSection builds one full pass over the playable parts, repeating forever.
func cycleSection(g rundown.Group, startTime int64, fromSchedule bool) (Section, cycleState) {
	sec := Section{
		StartTime: startTime,
		Repeating: true,
		Schedule:  fromSchedule,
		EndAction: EndActionLoopSelf,
	}
	var total int64
	for _, p := range g.Parts {
		if p.Disabled {
			continue
		}
		if p.IsInfinite() || (p.Loop && *p.Duration > 0) {
			return Section{}, cycleOpen
		}
		sec.Parts = append(sec.Parts, SectionPart{PartID: p.ID, Offset: total, Duration: ms(*p.Duration)})
		total += *p.Duration
	}
	if total == 0 {
		return Section{}, cycleEmpty
	}
	sec.Duration = ms(total)
	sec.EndTime = ms(startTime + total)
	return sec, cycleClosed
}

// applyPause freezes the first non-empty section of the chain.
func applyPause(sections []Section, pauseTime int64) {
	for i := range sections {
		if !sections[i].IsEmpty() {
			sections[i].PauseTime = ms(pauseTime)
			return
		}
	}
}

// applyStop cuts the chain at stopTime. The sections up to the first
// non-empty one are always kept so the stopped part stays on record.
func applyStop(sections []Section, stopTime int64) []Section {
	kept := make([]Section, 0, len(sections))
	seenPart := false
	for _, s := range sections {
		if s.StartTime >= stopTime && seenPart {
			break
		}
		if !s.IsEmpty() {
			seenPart = true
		}
		s.StopTime = ms(stopTime)
		if s.Repeating || s.EndTime == nil || *s.EndTime > stopTime {
			end := stopTime
			if end < s.StartTime {
				end = s.StartTime
			}
			s.EndTime = ms(end)
			s.EndAction = EndActionStop
		}
		kept = append(kept, s)
	}
	return kept
}

// cutAt hands the chain over to a scheduled start at t.
func cutAt(sections []Section, t int64) []Section {
	kept := make([]Section, 0, len(sections))
	for _, s := range sections {
		if s.StartTime >= t {
			break
		}
		if s.StopTime != nil && *s.StopTime <= t {
			kept = append(kept, s)
			continue
		}
		// A paused section holds until the scheduled start replaces it.
		if s.PauseTime != nil || s.Repeating || s.EndTime == nil || *s.EndTime > t {
			s.StopTime = ms(t)
			if !s.Repeating && (s.EndTime == nil || *s.EndTime > t) {
				s.EndTime = ms(t)
			}
			s.EndAction = EndActionNextSection
		}
		kept = append(kept, s)
	}
	return kept
}

func prepareMulti(g rundown.Group, now int64) *PreparedPlayData {
	parts := make(map[string]Section)
	for _, e := range g.PlayingEntries() {
		sec := partSection(e.Part, e.Playing.StartTime, e.Playing.FromSchedule)
		if e.Playing.PauseTime != nil {
			sec.PauseTime = ms(*e.Playing.PauseTime)
		}
		if e.Playing.StopTime != nil {
			sec = applyStop([]Section{sec}, *e.Playing.StopTime)[0]
		}
		parts[e.Part.ID] = sec
	}

	if next, ok := pendingOccurrence(g, now); ok {
		for _, p := range g.Parts {
			if p.Disabled {
				continue
			}
			if sec, ok := parts[p.ID]; ok {
				// Parts still running at the occurrence are left alone by the activation.
				if _, running := sec.timeAt(next); running {
					continue
				}
				// A part holds one section: its scheduled start is prepared once this play is over.
				if _, active := sec.timeAt(now); active {
					continue
				}
			}
			parts[p.ID] = partSection(p, next, true)
		}
	}

	if len(parts) == 0 {
		return nil
	}
	return &PreparedPlayData{Kind: KindMulti, Parts: parts}
}

// partSection builds the independent section of a multi-play part.
func partSection(p rundown.Part, startTime int64, fromSchedule bool) Section {
	sec := Section{
		StartTime: startTime,
		Schedule:  fromSchedule,
		Parts:     []SectionPart{{PartID: p.ID, Duration: p.Duration}},
	}
	if p.IsInfinite() {
		sec.EndAction = EndActionInfinite
		return sec
	}
	dur := *p.Duration
	sec.Parts[0].Duration = ms(dur)
	sec.Duration = ms(dur)
	sec.EndTime = ms(startTime + dur)
	sec.EndAction = EndActionStop
	if p.Loop && dur > 0 {
		sec.Repeating = true
		sec.EndAction = EndActionLoopSelf
	}
	return sec
}
