package actions

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/cuebox/internal/app/playdata"
	"github.com/osa030/cuebox/internal/domain/rundown"
)

func newGroup(oneAtATime bool) rundown.Group {
	return rundown.Group{
		ID:         "group0",
		OneAtATime: oneAtATime,
		AutoPlay:   oneAtATime,
		Parts: []rundown.Part{
			{ID: "partA", Duration: rundown.Ms(1000)},
			{ID: "partB", Duration: rundown.Ms(2000)},
			{ID: "partC", Duration: rundown.Ms(3000)},
			{ID: "partD", Duration: rundown.Ms(4000)},
		},
	}
}

func playData(t *testing.T, g rundown.Group, now int64) playdata.GroupPlayData {
	t.Helper()
	p, err := playdata.Prepare(g, now)
	require.NoError(t, err)
	return playdata.Query(p, now)
}

func TestPlayGroup_Scenario(t *testing.T) {
	g, cmd, err := PlayGroup(newGroup(true), 1000)
	require.NoError(t, err)
	assert.Equal(t, OpPlayGroup, cmd.Op)
	assert.Equal(t, "partA", cmd.PartID)
	assert.True(t, cmd.Changed())

	data := playData(t, g, 1001)
	assert.Equal(t, int64(1), data.Playheads["partA"].PlayheadTime)
	assert.Equal(t, int64(11000), *data.SectionEndTime)
	assert.Contains(t, data.Countdowns, "partB")
	assert.Contains(t, data.Countdowns, "partC")
	assert.Contains(t, data.Countdowns, "partD")

	data = playData(t, g, 2300)
	assert.Equal(t, int64(300), data.Playheads["partB"].PlayheadTime)
}

func TestPlayPart_OneAtATimeClearsOthers(t *testing.T) {
	g, _, err := PlayPart(newGroup(true), "partA", 1000)
	require.NoError(t, err)
	g, _, err = PlayPart(g, "partC", 1200)
	require.NoError(t, err)

	require.Len(t, g.Playout.PlayingParts, 1)
	assert.Equal(t, int64(1200), g.Playout.PlayingParts["partC"].StartTime)
}

func TestPlayPart_MultiScenario(t *testing.T) {
	g, _, err := PlayPart(newGroup(false), "partA", 1000)
	require.NoError(t, err)
	g, _, err = PlayPart(g, "partB", 1500)
	require.NoError(t, err)

	data := playData(t, g, 1503)
	assert.Equal(t, int64(503), data.Playheads["partA"].PlayheadTime)
	assert.Equal(t, int64(3), data.Playheads["partB"].PlayheadTime)
	assert.False(t, data.GroupIsPlaying)
	assert.True(t, data.AnyPartIsPlaying)
}

func TestPlayPart_DoesNotMutateInput(t *testing.T) {
	g, _, err := PlayPart(newGroup(true), "partA", 1000)
	require.NoError(t, err)
	before := g.Clone()

	_, _, err = PlayPart(g, "partB", 1500)
	require.NoError(t, err)
	_, _, err = PausePart(g, "partA", nil, 1500)
	require.NoError(t, err)
	_, _, err = StopGroup(g, 1500)
	require.NoError(t, err)

	assert.Equal(t, before, g)
}

func TestPartNotFound_LeavesStateUnchanged(t *testing.T) {
	g, _, err := PlayPart(newGroup(true), "partA", 1000)
	require.NoError(t, err)

	ops := map[string]func() (rundown.Group, Command, error){
		"play":      func() (rundown.Group, Command, error) { return PlayPart(g, "missing", 1500) },
		"pause":     func() (rundown.Group, Command, error) { return PausePart(g, "missing", nil, 1500) },
		"stop":      func() (rundown.Group, Command, error) { return StopPart(g, "missing", 1500) },
		"play-stop": func() (rundown.Group, Command, error) { return PlayStopPart(g, "missing", 1500) },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			result, cmd, err := op()
			require.Error(t, err)
			assert.True(t, errors.Is(err, rundown.ErrPartNotFound))
			assert.Equal(t, g, result)
			assert.Empty(t, cmd.ID)
		})
	}
}

func TestPauseResume_Continuity(t *testing.T) {
	const t0, p, t1 = int64(1000), int64(300), int64(5000)

	g, _, err := PlayPart(newGroup(true), "partD", t0)
	require.NoError(t, err)

	g, cmd, err := PausePart(g, "partD", nil, t0+p)
	require.NoError(t, err)
	assert.Equal(t, OpPausePart, cmd.Op)
	entry := g.Playout.PlayingParts["partD"]
	require.NotNil(t, entry.PauseTime)
	assert.Equal(t, p, *entry.PauseTime)

	data := playData(t, g, 4000)
	assert.Equal(t, p, data.Playheads["partD"].PlayheadTime)
	assert.True(t, data.AllPlayingPartsArePaused)

	g, _, err = PlayPart(g, "partD", t1)
	require.NoError(t, err)
	entry = g.Playout.PlayingParts["partD"]
	assert.Nil(t, entry.PauseTime)
	assert.Equal(t, t1-p, entry.StartTime)

	data = playData(t, g, t1)
	assert.Equal(t, p, data.Playheads["partD"].PlayheadTime)
	assert.False(t, data.AllPlayingPartsArePaused)
}

func TestPausePart_Toggle(t *testing.T) {
	g, _, err := PlayPart(newGroup(true), "partA", 1000)
	require.NoError(t, err)

	g, _, err = PausePart(g, "partA", nil, 1400)
	require.NoError(t, err)
	g, _, err = PausePart(g, "partA", nil, 3000)
	require.NoError(t, err)

	entry := g.Playout.PlayingParts["partA"]
	assert.Nil(t, entry.PauseTime)
	assert.Equal(t, int64(2600), entry.StartTime)
}

func TestPausePart_ExplicitTime(t *testing.T) {
	g, _, err := PausePart(newGroup(true), "partC", rundown.Ms(1200), 5000)
	require.NoError(t, err)

	data := playData(t, g, 9000)
	require.Contains(t, data.Playheads, "partC")
	assert.Equal(t, int64(1200), data.Playheads["partC"].PlayheadTime)

	tests := []struct {
		name    string
		at      int64
		wantErr bool
	}{
		{name: "negative", at: -1, wantErr: true},
		{name: "at the end", at: 3000},
		{name: "past the end", at: 3001, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := newGroup(true)
			after, _, err := PausePart(before, "partC", rundown.Ms(tt.at), 5000)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrInvalidPauseTime))
			assert.Equal(t, before.Playout, after.Playout)
		})
	}

	// Infinite parts have no end to pause past.
	g = newGroup(false)
	g.Parts[0].Duration = nil
	_, _, err = PausePart(g, "partA", rundown.Ms(60000), 5000)
	assert.NoError(t, err)
}

func TestPausePart_AutoPlayedPart(t *testing.T) {
	g, _, err := PlayGroup(newGroup(true), 1000)
	require.NoError(t, err)

	g, _, err = PausePart(g, "partB", nil, 2300)
	require.NoError(t, err)

	require.Len(t, g.Playout.PlayingParts, 1)
	entry := g.Playout.PlayingParts["partB"]
	assert.Equal(t, int64(300), *entry.PauseTime)

	g, _, err = PlayPart(g, "partB", 10000)
	require.NoError(t, err)
	data := playData(t, g, 10000)
	assert.Equal(t, int64(300), data.Playheads["partB"].PlayheadTime)
	assert.Contains(t, data.Countdowns, "partC")
}

func TestPausePart_Multi(t *testing.T) {
	g, _, err := PlayPart(newGroup(false), "partA", 1000)
	require.NoError(t, err)
	g, _, err = PlayPart(g, "partB", 1000)
	require.NoError(t, err)

	g, _, err = PausePart(g, "partA", nil, 1250)
	require.NoError(t, err)

	data := playData(t, g, 1800)
	assert.Equal(t, int64(250), data.Playheads["partA"].PlayheadTime)
	assert.Equal(t, int64(800), data.Playheads["partB"].PlayheadTime)
	assert.False(t, data.AllPlayingPartsArePaused)
}

func TestStopPart_OneAtATime(t *testing.T) {
	g, _, err := PlayGroup(newGroup(true), 1000)
	require.NoError(t, err)

	g, cmd, err := StopPart(g, "partB", 2500)
	require.NoError(t, err)
	assert.True(t, cmd.Changed())

	entry := g.Playout.PlayingParts["partA"]
	require.NotNil(t, entry.StopTime)
	assert.Equal(t, int64(2500), *entry.StopTime)

	data := playData(t, g, 2600)
	assert.False(t, data.GroupIsPlaying)
	assert.Empty(t, data.Playheads)
}

func TestStopPart_NotPlayingIsNoop(t *testing.T) {
	g, _, err := PlayPart(newGroup(true), "partA", 1000)
	require.NoError(t, err)

	next, cmd, err := StopPart(g, "partC", 1500)
	require.NoError(t, err)
	assert.False(t, cmd.Changed())
	assert.Equal(t, g.Playout, next.Playout)
}

func TestStopPart_LoopingPartMidLoop(t *testing.T) {
	g := newGroup(true)
	g.Parts[1].Loop = true

	g, _, err := PlayPart(g, "partB", 1000)
	require.NoError(t, err)
	g, _, err = StopPart(g, "partB", 3500)
	require.NoError(t, err)

	p, err := playdata.Prepare(g, 3500)
	require.NoError(t, err)
	data := playdata.Query(p, 3600)
	assert.False(t, data.GroupIsPlaying)
	assert.Empty(t, data.Playheads)
	for _, s := range p.Sections {
		assert.Equal(t, int64(3500), *s.StopTime)
	}
}

func TestStopPart_MultiDeletes(t *testing.T) {
	g, _, err := PlayPart(newGroup(false), "partA", 1000)
	require.NoError(t, err)
	g, _, err = PlayPart(g, "partB", 1000)
	require.NoError(t, err)

	g, _, err = StopPart(g, "partA", 1200)
	require.NoError(t, err)
	assert.NotContains(t, g.Playout.PlayingParts, "partA")
	assert.Contains(t, g.Playout.PlayingParts, "partB")
}

func TestPlayStopPart(t *testing.T) {
	g, cmd, err := PlayStopPart(newGroup(false), "partA", 1000)
	require.NoError(t, err)
	assert.Equal(t, OpPlayStopPart, cmd.Op)
	assert.Contains(t, g.Playout.PlayingParts, "partA")

	g, _, err = PlayStopPart(g, "partA", 1500)
	require.NoError(t, err)
	assert.NotContains(t, g.Playout.PlayingParts, "partA")
}

func TestPlayGroup_ResumesPausedGroup(t *testing.T) {
	g, _, err := PlayGroup(newGroup(true), 1000)
	require.NoError(t, err)
	g, _, err = PausePart(g, "partA", nil, 1500)
	require.NoError(t, err)

	g, cmd, err := PlayGroup(g, 4000)
	require.NoError(t, err)
	assert.Equal(t, "partA", cmd.PartID)
	assert.Equal(t, int64(3500), g.Playout.PlayingParts["partA"].StartTime)
}

func TestPlayGroup_Errors(t *testing.T) {
	_, _, err := PlayGroup(newGroup(false), 1000)
	assert.True(t, errors.Is(err, ErrNotOneAtATime))
	assert.True(t, errors.Is(err, playdata.ErrInvalidConfiguration))

	g := newGroup(true)
	for i := range g.Parts {
		g.Parts[i].Disabled = true
	}
	_, _, err = PlayGroup(g, 1000)
	assert.True(t, errors.Is(err, ErrNoPlayablePart))

	g = newGroup(true)
	g.Disabled = true
	_, _, err = PlayGroup(g, 1000)
	assert.True(t, errors.Is(err, ErrGroupDisabled))
}

func TestPlayPart_Disabled(t *testing.T) {
	g := newGroup(true)
	g.Parts[0].Disabled = true

	_, _, err := PlayPart(g, "partA", 1000)
	assert.True(t, errors.Is(err, ErrPartDisabled))
}

func TestStopGroup(t *testing.T) {
	g, _, err := PlayGroup(newGroup(true), 1000)
	require.NoError(t, err)
	g, _, err = StopGroup(g, 1500)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), *g.Playout.PlayingParts["partA"].StopTime)

	// Stopping again keeps the original stop time.
	g, cmd, err := StopGroup(g, 1800)
	require.NoError(t, err)
	assert.False(t, cmd.Changed())
	assert.Equal(t, int64(1500), *g.Playout.PlayingParts["partA"].StopTime)

	m, _, err := PlayPart(newGroup(false), "partA", 1000)
	require.NoError(t, err)
	m, _, err = StopGroup(m, 1500)
	require.NoError(t, err)
	assert.Empty(t, m.Playout.PlayingParts)
}

func TestPlayNextPrev(t *testing.T) {
	g := newGroup(true)
	g.Parts[2].Disabled = true

	tests := []struct {
		name     string
		loop     bool
		playing  string
		next     bool
		expected string
	}{
		{name: "next from nothing plays first", next: true, expected: "partA"},
		{name: "next skips disabled", playing: "partB", next: true, expected: "partD"},
		{name: "next at end without loop", playing: "partD", next: true, expected: "partD"},
		{name: "next at end with loop wraps", loop: true, playing: "partD", next: true, expected: "partA"},
		{name: "prev from nothing plays last", expected: "partD"},
		{name: "prev skips disabled", playing: "partD", expected: "partB"},
		{name: "prev at start restarts", playing: "partA", expected: "partA"},
		{name: "prev at start with loop wraps", loop: true, playing: "partA", expected: "partD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			group := g.Clone()
			group.Loop = tt.loop
			if tt.playing != "" {
				var err error
				group, _, err = PlayPart(group, tt.playing, 1000)
				require.NoError(t, err)
			}

			op := PlayPrev
			if tt.next {
				op = PlayNext
			}
			result, _, err := op(group, 1100)
			require.NoError(t, err)

			data := playData(t, result, 1100)
			assert.Contains(t, data.Playheads, tt.expected)
		})
	}
}

func TestPlayNext_FollowsAutoPlay(t *testing.T) {
	g, _, err := PlayGroup(newGroup(true), 1000)
	require.NoError(t, err)

	// partB is playing through autoplay at 2300.
	g, cmd, err := PlayNext(g, 2300)
	require.NoError(t, err)
	assert.Equal(t, "partC", cmd.PartID)
	assert.Equal(t, int64(2300), g.Playout.PlayingParts["partC"].StartTime)
}

func TestPlayNext_MultiRejected(t *testing.T) {
	_, _, err := PlayNext(newGroup(false), 1000)
	assert.True(t, errors.Is(err, ErrNotOneAtATime))
	_, _, err = PlayPrev(newGroup(false), 1000)
	assert.True(t, errors.Is(err, ErrNotOneAtATime))
}

func TestActivateSchedule(t *testing.T) {
	g, cmd, err := ActivateSchedule(newGroup(true), 20000)
	require.NoError(t, err)
	assert.Equal(t, OpActivateSchedule, cmd.Op)
	entry := g.Playout.PlayingParts["partA"]
	assert.True(t, entry.FromSchedule)
	assert.Equal(t, int64(20000), entry.StartTime)

	data := playData(t, g, 20100)
	assert.True(t, data.Playheads["partA"].FromSchedule)

	m := newGroup(false)
	m.Parts[1].Disabled = true
	m, _, err = ActivateSchedule(m, 20000)
	require.NoError(t, err)
	assert.Len(t, m.Playout.PlayingParts, 3)
	assert.NotContains(t, m.Playout.PlayingParts, "partB")
}

func TestActivateSchedule_MultiKeepsRunningParts(t *testing.T) {
	g, _, err := PlayPart(newGroup(false), "partD", 1000)
	require.NoError(t, err)
	g, _, err = PlayPart(g, "partA", 1000)
	require.NoError(t, err)
	pause := int64(500)
	g, _, err = PausePart(g, "partB", &pause, 1000)
	require.NoError(t, err)

	// partD runs until 5000 and partB is paused; partA ended at 2000.
	g, cmd, err := ActivateSchedule(g, 3000)
	require.NoError(t, err)
	assert.True(t, cmd.Changed())

	assert.Equal(t, int64(1000), g.Playout.PlayingParts["partD"].StartTime)
	assert.False(t, g.Playout.PlayingParts["partD"].FromSchedule)
	assert.NotNil(t, g.Playout.PlayingParts["partB"].PauseTime)
	assert.False(t, g.Playout.PlayingParts["partB"].FromSchedule)
	for _, id := range []string{"partA", "partC"} {
		assert.Equal(t, int64(3000), g.Playout.PlayingParts[id].StartTime, id)
		assert.True(t, g.Playout.PlayingParts[id].FromSchedule, id)
	}
}

func TestActivateSchedule_MatchesPreparedSchedule(t *testing.T) {
	g, _, err := PlayPart(newGroup(false), "partD", 1000)
	require.NoError(t, err)
	g.Schedule = &rundown.Schedule{Activate: true, StartTime: 3000}

	// Prepared before the occurrence, queried after it.
	prepared, err := playdata.Prepare(g, 2000)
	require.NoError(t, err)
	predicted := playdata.Query(prepared, 3500)
	require.Len(t, predicted.Playheads, 4)

	started, _, err := ActivateSchedule(g, 3000)
	require.NoError(t, err)
	actual := playData(t, started, 3500)
	assert.Equal(t, predicted.Playheads, actual.Playheads)
}

func TestCommand_ApplyRevert(t *testing.T) {
	g, _, err := PlayPart(newGroup(true), "partA", 1000)
	require.NoError(t, err)
	next, cmd, err := PlayPart(g, "partB", 1500)
	require.NoError(t, err)

	reverted := cmd.Revert(next)
	assert.Equal(t, g.Playout, reverted.Playout)

	replayed := cmd.Apply(reverted)
	assert.Equal(t, next.Playout, replayed.Playout)
}

func TestOp_String(t *testing.T) {
	assert.Equal(t, "play_part", OpPlayPart.String())
	assert.Equal(t, "activate_schedule", OpActivateSchedule.String())
	assert.Equal(t, "unknown", Op(99).String())
}
