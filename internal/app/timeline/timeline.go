// Package timeline compiles prepared play data into absolute enable windows
// that an output device bridge can follow without evaluating play data itself.
package timeline

import (
	"fmt"
	"sort"

	"github.com/osa030/cuebox/internal/app/playdata"
)

// Object is the window in which a part is enabled on the output.
type Object struct {
	ID      string `json:"id"`
	GroupID string `json:"groupId"`
	PartID  string `json:"partId"`
	// Start is the absolute start of the first play, epoch ms.
	Start int64 `json:"start"`
	// Duration is the length of one play. Nil plays forever.
	Duration *int64 `json:"duration,omitempty"`
	// End disables the object at this time regardless of Duration and RepeatEvery.
	End *int64 `json:"end,omitempty"`
	// RepeatEvery restarts the play at this period, counted from Start.
	RepeatEvery  *int64 `json:"repeatEvery,omitempty"`
	Paused       bool   `json:"paused,omitempty"`
	PauseAt      int64  `json:"pauseAt,omitempty"`
	FromSchedule bool   `json:"fromSchedule,omitempty"`
}

// Compile converts prepared play data into timeline objects ordered by start.
// Sections following a paused section are left out because their start moves
// when the group resumes. A scheduled start replacing the paused section keeps
// its fixed time and stays. The prepared data is not modified.
func Compile(groupID string, p *playdata.PreparedPlayData) []Object {
	if p == nil {
		return nil
	}

	var objects []Object
	switch p.Kind {
	case playdata.KindSingle:
		var paused *playdata.Section
		for i, s := range p.Sections {
			if paused != nil && !takesOver(*paused, s) {
				continue
			}
			objects = append(objects, compileSection(groupID, fmt.Sprintf("s%d", i), s)...)
			if paused == nil && s.PauseTime != nil && !s.IsEmpty() {
				paused = &p.Sections[i]
			}
		}
	case playdata.KindMulti:
		for partID, s := range p.Parts {
			objects = append(objects, compileSection(groupID, "p_"+partID, s)...)
		}
	}

	sort.Slice(objects, func(i, j int) bool {
		if objects[i].Start != objects[j].Start {
			return objects[i].Start < objects[j].Start
		}
		return objects[i].ID < objects[j].ID
	})
	return objects
}

// takesOver reports whether s is a scheduled start replacing the paused section.
func takesOver(paused, s playdata.Section) bool {
	return s.Schedule && paused.StopTime != nil && s.StartTime >= *paused.StopTime
}

func compileSection(groupID, key string, s playdata.Section) []Object {
	if s.IsEmpty() {
		return nil
	}
	if s.PauseTime != nil {
		return []Object{pausedObject(groupID, key, s)}
	}

	objects := make([]Object, 0, len(s.Parts))
	for _, sp := range s.Parts {
		o := Object{
			ID:           fmt.Sprintf("%s_%s_%s", groupID, key, sp.PartID),
			GroupID:      groupID,
			PartID:       sp.PartID,
			Start:        s.StartTime + sp.Offset,
			Duration:     copyMs(sp.Duration),
			FromSchedule: s.Schedule,
		}
		if s.StopTime != nil && o.Start >= *s.StopTime {
			continue
		}

		if s.Repeating && s.Duration != nil && *s.Duration > 0 {
			o.RepeatEvery = copyMs(s.Duration)
			o.End = copyMs(s.StopTime)
		} else {
			o.End = endOf(o, s)
		}
		objects = append(objects, o)
	}
	return objects
}

// endOf returns the earliest of the part end, the section end and the stop time.
func endOf(o Object, s playdata.Section) *int64 {
	var end *int64
	if o.Duration != nil {
		end = ms(o.Start + *o.Duration)
	}
	for _, limit := range []*int64{s.EndTime, s.StopTime} {
		if limit != nil && (end == nil || *limit < *end) {
			end = ms(*limit)
		}
	}
	return end
}

func pausedObject(groupID, key string, s playdata.Section) Object {
	t := *s.PauseTime
	if s.Repeating && s.Duration != nil && *s.Duration > 0 {
		t %= *s.Duration
	}

	sp := s.Parts[0]
	for _, candidate := range s.Parts {
		if candidate.Offset > t {
			break
		}
		sp = candidate
		if candidate.Duration == nil || t < candidate.Offset+*candidate.Duration {
			break
		}
	}

	return Object{
		ID:           fmt.Sprintf("%s_%s_%s", groupID, key, sp.PartID),
		GroupID:      groupID,
		PartID:       sp.PartID,
		Start:        s.StartTime + sp.Offset,
		Duration:     copyMs(sp.Duration),
		Paused:       true,
		PauseAt:      t - sp.Offset,
		FromSchedule: s.Schedule,
	}
}

func ms(v int64) *int64 {
	return &v
}

func copyMs(v *int64) *int64 {
	if v == nil {
		return nil
	}
	return ms(*v)
}
