package controller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/cuebox/internal/app/actions"
	"github.com/osa030/cuebox/internal/app/guard"
	"github.com/osa030/cuebox/internal/app/notification"
	"github.com/osa030/cuebox/internal/app/playdata"
	"github.com/osa030/cuebox/internal/app/trigger"
	"github.com/osa030/cuebox/internal/domain/rundown"
	"github.com/osa030/cuebox/internal/infra/metrics"
)

// fakeClock is a manually advanced clock in epoch ms.
type fakeClock struct {
	now atomic.Int64
}

func (c *fakeClock) Now() int64 {
	return c.now.Load()
}

func (c *fakeClock) Set(t int64) {
	c.now.Store(t)
}

func testRundown(t *testing.T) rundown.Rundown {
	t.Helper()
	show := rundown.Group{
		ID:         "show",
		OneAtATime: true,
		AutoPlay:   true,
		Parts: []rundown.Part{
			{ID: "partA", Duration: rundown.Ms(1000)},
			{ID: "partB", Duration: rundown.Ms(2000)},
			{ID: "partC", Duration: rundown.Ms(3000)},
			{ID: "partD", Duration: rundown.Ms(4000), Locked: true},
		},
	}
	fx := rundown.Group{
		ID: "fx",
		Parts: []rundown.Part{
			{ID: "fx1", Duration: rundown.Ms(500)},
			{ID: "fx2", Duration: nil},
		},
	}
	locked := rundown.Group{
		ID:         "locked",
		OneAtATime: true,
		Locked:     true,
		Parts:      []rundown.Part{{ID: "l1", Duration: rundown.Ms(1000)}},
	}
	rd, err := rundown.New("rundown0", "Test", show, fx, locked)
	require.NoError(t, err)
	return rd
}

func newController(t *testing.T, rd rundown.Rundown, cfg Config) (*Controller, *fakeClock) {
	t.Helper()
	clock := &fakeClock{}
	clock.Set(1000)
	cfg.Now = clock.Now
	if cfg.Guards == nil {
		cfg.Guards = guard.NewChain(&guard.LockedGroupGuard{}, &guard.LockedPartGuard{})
	}
	c, err := New(rd, cfg)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, clock
}

func TestController_ExecuteAndPlayData(t *testing.T) {
	c, clock := newController(t, testRundown(t), Config{})

	cmd, err := c.Execute(context.Background(), Request{Op: actions.OpPlayGroup, GroupID: "show"})
	require.NoError(t, err)
	assert.Equal(t, "partA", cmd.PartID)

	clock.Set(2300)
	data, err := c.PlayData("show")
	require.NoError(t, err)
	assert.Equal(t, int64(300), data.Playheads["partB"].PlayheadTime)
	assert.True(t, data.GroupIsPlaying)

	objects, err := c.Timeline("show")
	require.NoError(t, err)
	assert.Len(t, objects, 4)
}

func TestController_UnknownGroup(t *testing.T) {
	c, _ := newController(t, testRundown(t), Config{})

	_, err := c.Execute(context.Background(), Request{Op: actions.OpPlayGroup, GroupID: "missing"})
	assert.True(t, errors.Is(err, rundown.ErrGroupNotFound))

	_, err = c.PlayData("missing")
	assert.True(t, errors.Is(err, rundown.ErrGroupNotFound))

	_, err = c.Timeline("missing")
	assert.True(t, errors.Is(err, rundown.ErrGroupNotFound))
}

func TestController_GuardRejects(t *testing.T) {
	m := metrics.New()
	c, _ := newController(t, testRundown(t), Config{Metrics: m})

	tests := []struct {
		name     string
		req      Request
		wantCode string
	}{
		{
			name:     "locked group",
			req:      Request{Op: actions.OpPlayGroup, GroupID: "locked"},
			wantCode: "group_locked",
		},
		{
			name:     "locked part",
			req:      Request{Op: actions.OpPlayPart, GroupID: "show", PartID: "partD"},
			wantCode: "part_locked",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Execute(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrRejected))

			var rejected *RejectedError
			require.True(t, errors.As(err, &rejected))
			assert.Equal(t, tt.wantCode, rejected.Code)
		})
	}

	g, err := c.Group("show")
	require.NoError(t, err)
	assert.True(t, g.Playout.IsEmpty())
}

func TestController_FailedCommandLeavesStateUnchanged(t *testing.T) {
	c, _ := newController(t, testRundown(t), Config{})

	_, err := c.Execute(context.Background(), Request{Op: actions.OpPlayGroup, GroupID: "fx"})
	assert.True(t, errors.Is(err, actions.ErrNotOneAtATime))

	_, err = c.Execute(context.Background(), Request{Op: actions.OpPlayPart, GroupID: "fx", PartID: "missing"})
	assert.True(t, errors.Is(err, rundown.ErrPartNotFound))

	g, err := c.Group("fx")
	require.NoError(t, err)
	assert.True(t, g.Playout.IsEmpty())
	undo, _ := c.HistoryLen()
	assert.Zero(t, undo)
}

func TestController_UndoRedo(t *testing.T) {
	c, clock := newController(t, testRundown(t), Config{})
	ctx := context.Background()

	_, err := c.Undo(ctx)
	assert.True(t, errors.Is(err, ErrNothingToUndo))

	_, err = c.Execute(ctx, Request{Op: actions.OpPlayPart, GroupID: "fx", PartID: "fx1"})
	require.NoError(t, err)
	clock.Set(1200)
	_, err = c.Execute(ctx, Request{Op: actions.OpPlayPart, GroupID: "fx", PartID: "fx2"})
	require.NoError(t, err)

	cmd, err := c.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fx2", cmd.PartID)

	data, err := c.PlayData("fx")
	require.NoError(t, err)
	assert.Contains(t, data.Playheads, "fx1")
	assert.NotContains(t, data.Playheads, "fx2")

	_, err = c.Redo(ctx)
	require.NoError(t, err)
	data, err = c.PlayData("fx")
	require.NoError(t, err)
	assert.Contains(t, data.Playheads, "fx2")

	_, err = c.Redo(ctx)
	assert.True(t, errors.Is(err, ErrNothingToRedo))
}

func TestController_Events(t *testing.T) {
	c, _ := newController(t, testRundown(t), Config{EventBuffer: 8})
	id, events := c.Events()
	assert.Equal(t, 1, c.SubscriberCount())

	_, err := c.Execute(context.Background(), Request{Op: actions.OpPlayPart, GroupID: "fx", PartID: "fx1"})
	require.NoError(t, err)

	select {
	case msg := <-events:
		assert.Equal(t, notification.MessageStateChanged, msg.Type)
		assert.Equal(t, "fx", msg.GroupID)
		assert.Equal(t, "fx1", msg.PartID)
		assert.True(t, msg.PlayData.AnyPartIsPlaying)
		assert.Equal(t, uint64(1), msg.SequenceNo)
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}

	c.Unsubscribe(id)
	assert.Equal(t, 0, c.SubscriberCount())
}

func TestController_Snapshot(t *testing.T) {
	c, _ := newController(t, testRundown(t), Config{})

	_, err := c.Execute(context.Background(), Request{Op: actions.OpPlayGroup, GroupID: "show"})
	require.NoError(t, err)
	_, err = c.Execute(context.Background(), Request{Op: actions.OpPausePart, GroupID: "fx", PartID: "fx2"})
	require.NoError(t, err)

	snapshot := c.Snapshot()
	require.Len(t, snapshot, 3)
	assert.Equal(t, "show", snapshot[0].Group.ID)
	assert.Equal(t, StatePlaying, snapshot[0].State)
	assert.Equal(t, StatePaused, snapshot[1].State)
	assert.Equal(t, StateIdle, snapshot[2].State)
	assert.Equal(t, 2, c.PlayingGroups())
}

func TestController_FireTrigger(t *testing.T) {
	triggers, err := trigger.NewSet([]trigger.Config{
		{Label: "go", Action: "play", GroupID: "show"},
		{Label: "hold", Action: "pause", GroupID: "fx", PartID: "fx1", Settings: map[string]any{"at_ms": 250}},
	})
	require.NoError(t, err)
	c, _ := newController(t, testRundown(t), Config{Triggers: triggers})

	cmd, err := c.FireTrigger(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, actions.OpPlayGroup, cmd.Op)

	_, err = c.FireTrigger(context.Background(), "hold")
	require.NoError(t, err)
	data, err := c.PlayData("fx")
	require.NoError(t, err)
	assert.Equal(t, int64(250), data.Playheads["fx1"].PlayheadTime)

	_, err = c.FireTrigger(context.Background(), "missing")
	assert.True(t, errors.Is(err, trigger.ErrTriggerNotFound))
}

func TestController_CheckSchedules(t *testing.T) {
	rd := testRundown(t)
	g, err := rd.Group("locked")
	require.NoError(t, err)
	g.Schedule = &rundown.Schedule{Activate: true, StartTime: 5000, Interval: 10000}
	rd, err = rd.WithGroup(g)
	require.NoError(t, err)

	m := metrics.New()
	c, clock := newController(t, rd, Config{Metrics: m})
	_, events := c.Events()

	// The pending occurrence is visible before it is due.
	data, err := c.PlayData("locked")
	require.NoError(t, err)
	require.Len(t, data.Countdowns["l1"], 1)
	assert.Equal(t, int64(5000), data.Countdowns["l1"][0].Timestamp)

	clock.Set(4000)
	assert.Equal(t, 0, c.CheckSchedules())

	// Locked groups still start on schedule.
	clock.Set(5050)
	assert.Equal(t, 1, c.CheckSchedules())
	assert.Equal(t, 0, c.CheckSchedules())

	msg := <-events
	assert.Equal(t, notification.MessageScheduleActivated, msg.Type)

	data, err = c.PlayData("locked")
	require.NoError(t, err)
	ph := data.Playheads["l1"]
	assert.Equal(t, int64(50), ph.PlayheadTime)
	assert.True(t, ph.FromSchedule)

	clock.Set(15000)
	assert.Equal(t, 1, c.CheckSchedules())
	group, err := c.Group("locked")
	require.NoError(t, err)
	assert.Equal(t, int64(15000), group.Playout.PlayingParts["l1"].StartTime)
}

func TestController_ScheduleLoop(t *testing.T) {
	rd := testRundown(t)
	g, err := rd.Group("show")
	require.NoError(t, err)
	g.Schedule = &rundown.Schedule{Activate: true, StartTime: 2000}
	rd, err = rd.WithGroup(g)
	require.NoError(t, err)

	c, clock := newController(t, rd, Config{ScheduleCheckInterval: 5 * time.Millisecond})
	_, events := c.Events()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)

	clock.Set(2010)
	select {
	case msg := <-events:
		assert.Equal(t, notification.MessageScheduleActivated, msg.Type)
		assert.Equal(t, "show", msg.GroupID)
	case <-time.After(2 * time.Second):
		t.Fatal("schedule was not activated")
	}
}

func TestController_Close(t *testing.T) {
	c, _ := newController(t, testRundown(t), Config{})
	_, events := c.Events()
	c.Close()
	c.Close()

	_, ok := <-events
	assert.False(t, ok)

	_, err := c.Execute(context.Background(), Request{Op: actions.OpPlayGroup, GroupID: "show"})
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestStateOf(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "unknown", State(7).String())
}

// scheduleBlocker rejects every scheduled start.
type scheduleBlocker struct{}

func (g *scheduleBlocker) Name() string { return "schedule_blocker" }
func (g *scheduleBlocker) Description() string { return "Rejects scheduled starts" }
func (g *scheduleBlocker) ReturnCodes() []string { return []string{"blocked"} }
func (g *scheduleBlocker) ValidateConfig(settings map[string]any) error { return nil }
func (g *scheduleBlocker) AppliesTo(source guard.Source) bool { return source == guard.SourceSchedule }
func (g *scheduleBlocker) Check(ctx context.Context, req guard.Request, group rundown.Group) guard.Result {
	return guard.Reject("blocked")
}

func scheduledRundown(t *testing.T, g rundown.Group) rundown.Rundown {
	t.Helper()
	rd, err := rundown.New("rundown0", "Test", g)
	require.NoError(t, err)
	return rd
}

func TestController_DisabledGroupIgnoresSchedule(t *testing.T) {
	rd := scheduledRundown(t, rundown.Group{
		ID:         "promo",
		OneAtATime: true,
		Disabled:   true,
		Schedule:   &rundown.Schedule{Activate: true, StartTime: 2000},
		Parts:      []rundown.Part{{ID: "a", Duration: rundown.Ms(10000)}},
	})
	c, clock := newController(t, rd, Config{})

	data, err := c.PlayData("promo")
	require.NoError(t, err)
	assert.Empty(t, data.Countdowns)

	clock.Set(2500)
	assert.Equal(t, 0, c.CheckSchedules())

	data, err = c.PlayData("promo")
	require.NoError(t, err)
	assert.False(t, data.AnyPartIsPlaying)
	assert.Empty(t, data.Playheads)

	g, err := c.Group("promo")
	require.NoError(t, err)
	assert.True(t, g.Playout.IsEmpty())
}

func TestController_RejectedScheduleClearsPlayData(t *testing.T) {
	rd := scheduledRundown(t, rundown.Group{
		ID:         "promo",
		OneAtATime: true,
		Schedule:   &rundown.Schedule{Activate: true, StartTime: 2000},
		Parts:      []rundown.Part{{ID: "a", Duration: rundown.Ms(10000)}},
	})
	c, clock := newController(t, rd, Config{Guards: guard.NewChain(&scheduleBlocker{})})

	clock.Set(2500)
	assert.Equal(t, 0, c.CheckSchedules())

	data, err := c.PlayData("promo")
	require.NoError(t, err)
	assert.False(t, data.AnyPartIsPlaying)
	assert.Empty(t, data.Playheads)
}

func TestController_MultiScheduleKeepsRunningParts(t *testing.T) {
	rd := scheduledRundown(t, rundown.Group{
		ID:       "fx",
		Schedule: &rundown.Schedule{Activate: true, StartTime: 3000},
		Parts: []rundown.Part{
			{ID: "a", Duration: rundown.Ms(10000)},
			{ID: "b", Duration: rundown.Ms(10000)},
		},
	})
	c, clock := newController(t, rd, Config{})

	_, err := c.Execute(context.Background(), Request{Op: actions.OpPlayPart, GroupID: "fx", PartID: "a"})
	require.NoError(t, err)

	clock.Set(2500)
	data, err := c.PlayData("fx")
	require.NoError(t, err)
	assert.Equal(t, int64(1500), data.Playheads["a"].PlayheadTime)
	assert.Equal(t, []playdata.Countdown{{Duration: 500, Timestamp: 3000}}, data.Countdowns["b"])
	assert.NotContains(t, data.Countdowns, "a")

	clock.Set(3500)
	predicted, err := c.PlayData("fx")
	require.NoError(t, err)

	assert.Equal(t, 1, c.CheckSchedules())
	data, err = c.PlayData("fx")
	require.NoError(t, err)
	assert.Equal(t, predicted.Playheads, data.Playheads)
	assert.Equal(t, int64(2500), data.Playheads["a"].PlayheadTime)
	assert.False(t, data.Playheads["a"].FromSchedule)
	assert.Equal(t, int64(500), data.Playheads["b"].PlayheadTime)
	assert.True(t, data.Playheads["b"].FromSchedule)
}

func TestController_FailedUndoKeepsHistory(t *testing.T) {
	c, _ := newController(t, testRundown(t), Config{})

	c.history.Push(actions.Command{
		ID:      "cmd0",
		Op:      actions.OpPlayPart,
		GroupID: "removed",
		PartID:  "x",
		After: rundown.Playout{PlayingParts: map[string]rundown.PlayingPart{
			"x": {StartTime: 1000},
		}},
	})

	_, err := c.Undo(context.Background())
	assert.True(t, errors.Is(err, rundown.ErrGroupNotFound))

	undo, redo := c.HistoryLen()
	assert.Equal(t, 1, undo)
	assert.Equal(t, 0, redo)
}
