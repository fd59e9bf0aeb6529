// Package actions provides the state transitions of a group's playout.
//
// Every operation takes a group value and returns an updated copy together
// with the Command describing the change. The input group is never modified
// and on error it is returned unchanged.
package actions

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/cuebox/internal/app/playdata"
	"github.com/osa030/cuebox/internal/domain/rundown"
)

// Errors
var (
	ErrInvalidConfiguration = playdata.ErrInvalidConfiguration
	ErrNotOneAtATime        = errors.Mark(errors.New("operation requires a one-at-a-time group"), playdata.ErrInvalidConfiguration)
	ErrNoPlayablePart       = errors.Mark(errors.New("group has no playable part"), playdata.ErrInvalidConfiguration)
	ErrPartDisabled         = errors.New("part is disabled")
	ErrGroupDisabled        = errors.New("group is disabled")
	ErrInvalidPauseTime     = errors.New("pause time outside the part")
)

// PlayPart starts the part. A paused part resumes where it was paused.
// In one-at-a-time groups every other part is stopped first.
func PlayPart(g rundown.Group, partID string, now int64) (rundown.Group, Command, error) {
	part, err := playablePart(g, partID)
	if err != nil {
		return g, Command{}, err
	}

	next := g.Playout.Clone()
	if entry, ok := next.PlayingParts[part.ID]; ok && entry.IsPaused() && !entry.IsStopped(now) {
		next.PlayingParts[part.ID] = resume(entry, now)
		return commit(g, OpPlayPart, part.ID, now, next)
	}

	start(&next, g, part.ID, rundown.PlayingPart{StartTime: now})
	return commit(g, OpPlayPart, part.ID, now, next)
}

// PausePart pauses the part at pauseTime, or at its current playhead when
// pauseTime is nil. Pausing a paused part resumes it. Pausing a part that is
// not playing cues it, paused, at pauseTime.
func PausePart(g rundown.Group, partID string, pauseTime *int64, now int64) (rundown.Group, Command, error) {
	part, err := playablePart(g, partID)
	if err != nil {
		return g, Command{}, err
	}

	next := g.Playout.Clone()
	if entry, ok := next.PlayingParts[part.ID]; ok && entry.IsPaused() && !entry.IsStopped(now) {
		next.PlayingParts[part.ID] = resume(entry, now)
		return commit(g, OpPausePart, part.ID, now, next)
	}

	var at int64
	fromSchedule := false
	ph, playing, err := currentPlayhead(g, part.ID, now)
	if err != nil {
		return g, Command{}, err
	}
	if playing {
		at = ph.PlayheadTime
		fromSchedule = ph.FromSchedule
	}
	if pauseTime != nil {
		at = *pauseTime
	}
	if at < 0 || (part.Duration != nil && at > *part.Duration) {
		return g, Command{}, errors.Wrapf(ErrInvalidPauseTime, "part %s: %d", part.ID, at)
	}

	start(&next, g, part.ID, rundown.PlayingPart{
		StartTime:    now - at,
		PauseTime:    rundown.Ms(at),
		FromSchedule: fromSchedule,
	})
	return commit(g, OpPausePart, part.ID, now, next)
}

// StopPart stops the part. One-at-a-time groups keep the entry with a stop
// time so the stopped section stays on record; multi-play groups drop it.
// Stopping a part that is not playing leaves the group unchanged.
func StopPart(g rundown.Group, partID string, now int64) (rundown.Group, Command, error) {
	if _, err := g.Part(partID); err != nil {
		return g, Command{}, err
	}

	_, playing, err := currentPlayhead(g, partID, now)
	if err != nil {
		return g, Command{}, err
	}

	next := g.Playout.Clone()
	if playing {
		if g.OneAtATime {
			stopAll(&next, now)
		} else {
			delete(next.PlayingParts, partID)
		}
	}
	return commit(g, OpStopPart, partID, now, next)
}

// PlayStopPart stops the part if it is running and plays it otherwise.
func PlayStopPart(g rundown.Group, partID string, now int64) (rundown.Group, Command, error) {
	if _, err := g.Part(partID); err != nil {
		return g, Command{}, err
	}

	ph, playing, err := currentPlayhead(g, partID, now)
	if err != nil {
		return g, Command{}, err
	}

	var (
		next rundown.Group
		cmd  Command
	)
	if playing && ph.PartPauseTime == nil {
		next, cmd, err = StopPart(g, partID, now)
	} else {
		next, cmd, err = PlayPart(g, partID, now)
	}
	if err != nil {
		return g, Command{}, err
	}
	cmd.Op = OpPlayStopPart
	return next, cmd, nil
}

// PlayGroup starts a one-at-a-time group from its first playable part.
// A paused group resumes instead.
func PlayGroup(g rundown.Group, now int64) (rundown.Group, Command, error) {
	if err := requireOneAtATime(g); err != nil {
		return g, Command{}, err
	}

	next := g.Playout.Clone()
	for _, e := range g.PlayingEntries() {
		if e.Playing.IsPaused() && !e.Playing.IsStopped(now) {
			next.PlayingParts[e.Part.ID] = resume(e.Playing, now)
			return commit(g, OpPlayGroup, e.Part.ID, now, next)
		}
	}

	first := g.FirstPlayableIndex()
	if first < 0 {
		return g, Command{}, errors.Wrapf(ErrNoPlayablePart, "group %s", g.ID)
	}
	partID := g.Parts[first].ID
	start(&next, g, partID, rundown.PlayingPart{StartTime: now})
	return commit(g, OpPlayGroup, partID, now, next)
}

// StopGroup stops every part of the group.
func StopGroup(g rundown.Group, now int64) (rundown.Group, Command, error) {
	next := g.Playout.Clone()
	if g.OneAtATime {
		data, err := query(g, now)
		if err != nil {
			return g, Command{}, err
		}
		if data.AnyPartIsPlaying {
			stopAll(&next, now)
		}
	} else {
		next.PlayingParts = make(map[string]rundown.PlayingPart)
	}
	return commit(g, OpStopGroup, "", now, next)
}

// PlayNext starts the playable part after the current one.
// Nothing happens at the end of a group that does not loop.
func PlayNext(g rundown.Group, now int64) (rundown.Group, Command, error) {
	if err := requireOneAtATime(g); err != nil {
		return g, Command{}, err
	}

	idx, err := currentIndex(g, now)
	if err != nil {
		return g, Command{}, err
	}
	target := g.FirstPlayableIndex()
	if idx >= 0 {
		target = g.NextPlayableIndex(idx, g.Loop)
	}
	return step(g, OpPlayNext, target, now)
}

// PlayPrev starts the playable part before the current one.
// At the start of a group that does not loop the current part restarts.
func PlayPrev(g rundown.Group, now int64) (rundown.Group, Command, error) {
	if err := requireOneAtATime(g); err != nil {
		return g, Command{}, err
	}

	idx, err := currentIndex(g, now)
	if err != nil {
		return g, Command{}, err
	}
	target := g.LastPlayableIndex()
	if idx >= 0 {
		target = g.PrevPlayableIndex(idx, g.Loop)
		if target < 0 {
			target = idx
		}
	}
	return step(g, OpPlayPrev, target, now)
}

// ActivateSchedule applies a scheduled start at the given time.
// One-at-a-time groups start from their first playable part, multi-play
// groups start every playable part that is not still running at that time.
func ActivateSchedule(g rundown.Group, at int64) (rundown.Group, Command, error) {
	if g.Disabled {
		return g, Command{}, errors.Wrapf(ErrGroupDisabled, "group %s", g.ID)
	}

	next := g.Playout.Clone()
	if g.OneAtATime {
		first := g.FirstPlayableIndex()
		if first < 0 {
			return g, Command{}, errors.Wrapf(ErrNoPlayablePart, "group %s", g.ID)
		}
		start(&next, g, g.Parts[first].ID, rundown.PlayingPart{StartTime: at, FromSchedule: true})
		return commit(g, OpActivateSchedule, g.Parts[first].ID, at, next)
	}

	data, err := query(g, at)
	if err != nil {
		return g, Command{}, err
	}
	for _, p := range g.Parts {
		if p.Disabled {
			continue
		}
		if _, running := data.Playheads[p.ID]; running {
			continue
		}
		next.PlayingParts[p.ID] = rundown.PlayingPart{StartTime: at, FromSchedule: true}
	}
	return commit(g, OpActivateSchedule, "", at, next)
}

func step(g rundown.Group, op Op, target int, now int64) (rundown.Group, Command, error) {
	if target < 0 {
		return commit(g, op, "", now, g.Playout.Clone())
	}
	next := g.Playout.Clone()
	partID := g.Parts[target].ID
	start(&next, g, partID, rundown.PlayingPart{StartTime: now})
	return commit(g, op, partID, now, next)
}

func playablePart(g rundown.Group, partID string) (rundown.Part, error) {
	if g.Disabled {
		return rundown.Part{}, errors.Wrapf(ErrGroupDisabled, "group %s", g.ID)
	}
	part, err := g.Part(partID)
	if err != nil {
		return rundown.Part{}, err
	}
	if part.Disabled {
		return rundown.Part{}, errors.Wrapf(ErrPartDisabled, "group %s: part %s", g.ID, partID)
	}
	return part, nil
}

func requireOneAtATime(g rundown.Group) error {
	if !g.OneAtATime {
		return errors.Wrapf(ErrNotOneAtATime, "group %s", g.ID)
	}
	if g.Disabled {
		return errors.Wrapf(ErrGroupDisabled, "group %s", g.ID)
	}
	return nil
}

// start records a new playing part, clearing the others in one-at-a-time groups.
func start(p *rundown.Playout, g rundown.Group, partID string, pp rundown.PlayingPart) {
	if g.OneAtATime {
		p.PlayingParts = make(map[string]rundown.PlayingPart, 1)
	}
	p.PlayingParts[partID] = pp
}

// resume shifts the start time so the playhead continues from the pause point.
func resume(pp rundown.PlayingPart, now int64) rundown.PlayingPart {
	pp.StartTime = now - *pp.PauseTime
	pp.PauseTime = nil
	return pp
}

func stopAll(p *rundown.Playout, now int64) {
	for id, pp := range p.PlayingParts {
		if pp.StopTime == nil || *pp.StopTime > now {
			pp.StopTime = rundown.Ms(now)
			p.PlayingParts[id] = pp
		}
	}
}

func query(g rundown.Group, now int64) (playdata.GroupPlayData, error) {
	prepared, err := playdata.Prepare(g, now)
	if err != nil {
		return playdata.GroupPlayData{}, errors.Wrapf(err, "group %s", g.ID)
	}
	return playdata.Query(prepared, now), nil
}

// currentPlayhead returns the playhead of the part if it is active at now,
// including parts reached through autoplay.
func currentPlayhead(g rundown.Group, partID string, now int64) (playdata.Playhead, bool, error) {
	data, err := query(g, now)
	if err != nil {
		return playdata.Playhead{}, false, err
	}
	ph, ok := data.Playheads[partID]
	return ph, ok, nil
}

// currentIndex returns the index of the active part of a one-at-a-time group, or -1.
func currentIndex(g rundown.Group, now int64) (int, error) {
	data, err := query(g, now)
	if err != nil {
		return -1, err
	}
	for id := range data.Playheads {
		return g.PartIndex(id), nil
	}
	return -1, nil
}

func commit(g rundown.Group, op Op, partID string, now int64, next rundown.Playout) (rundown.Group, Command, error) {
	cmd := Command{
		ID:      uuid.New().String(),
		Op:      op,
		GroupID: g.ID,
		PartID:  partID,
		At:      now,
		Before:  g.Playout.Clone(),
		After:   next,
	}
	zlog.Debug().Msgf("actions: %s group=%s part=%s at=%d changed=%v", op, g.ID, partID, now, cmd.Changed())
	return cmd.Apply(g), cmd, nil
}
