// Package controller serializes playout commands over a rundown and keeps
// the prepared play data of every group up to date.
package controller

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/cuebox/internal/app/actions"
	"github.com/osa030/cuebox/internal/app/guard"
	"github.com/osa030/cuebox/internal/app/notification"
	"github.com/osa030/cuebox/internal/app/playdata"
	"github.com/osa030/cuebox/internal/app/timeline"
	"github.com/osa030/cuebox/internal/app/trigger"
	"github.com/osa030/cuebox/internal/app/undo"
	"github.com/osa030/cuebox/internal/domain/rundown"
	"github.com/osa030/cuebox/internal/infra/metrics"
)

// Errors
var (
	ErrRejected      = errors.New("command rejected")
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
	ErrUnsupportedOp = errors.New("unsupported operation")
	ErrClosed        = errors.New("controller is closed")
)

// RejectedError carries the code of the guard that rejected a command.
type RejectedError struct {
	Code string
}

func (e *RejectedError) Error() string {
	return "rejected by guard: " + e.Code
}

// Config holds controller configuration.
type Config struct {
	Guards                *guard.Chain  // Nil runs no guards
	Triggers              *trigger.Set  // Nil disables FireTrigger
	UndoDepth             int           // Commands kept for undo
	EventBuffer           int           // Buffer of channels returned by Events
	ScheduleCheckInterval time.Duration // How often due schedules are activated
	Now                   func() int64  // Clock in epoch ms, wall clock when nil
	Metrics               *metrics.Metrics
}

// Request is a command issued against a group.
type Request struct {
	Op        actions.Op
	GroupID   string
	PartID    string
	PauseTime *int64 // Pause position for OpPausePart, nil pauses at the playhead
	Source    guard.Source
}

// GroupStatus is a group together with its current play data.
type GroupStatus struct {
	Group    rundown.Group
	State    State
	PlayData playdata.GroupPlayData
}

// Controller owns the rundown. Commands are serialized; readers work on the
// prepared play data cached after every change.
type Controller struct {
	mu sync.RWMutex

	rundown   rundown.Rundown
	prepared  map[string]*playdata.PreparedPlayData
	lastCheck map[string]int64 // Last schedule check per group, epoch ms

	config  Config
	guards  *guard.Chain
	history *undo.Stack
	hub     *notification.Hub

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// New creates a controller for the rundown.
func New(rd rundown.Rundown, config Config) (*Controller, error) {
	if config.Now == nil {
		config.Now = wallClockNow
	}
	if config.ScheduleCheckInterval <= 0 {
		config.ScheduleCheckInterval = 100 * time.Millisecond
	}
	guards := config.Guards
	if guards == nil {
		guards = guard.NewChain()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		rundown:   rd,
		prepared:  make(map[string]*playdata.PreparedPlayData, rd.Len()),
		lastCheck: make(map[string]int64, rd.Len()),
		config:    config,
		guards:    guards,
		history:   undo.NewStack(config.UndoDepth),
		hub:       notification.NewHub(),
		ctx:       ctx,
		cancel:    cancel,
	}

	now := config.Now()
	for _, g := range rd.Groups() {
		if err := c.prepareLocked(g, now); err != nil {
			cancel()
			return nil, err
		}
		c.lastCheck[g.ID] = now
	}
	return c, nil
}

// Start runs the schedule loop until ctx is cancelled or the controller is closed.
func (c *Controller) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.config.ScheduleCheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.ctx.Done():
				return
			case <-ticker.C:
				c.CheckSchedules()
			}
		}
	}()
}

// Execute runs a command: guards, the action layer, then the state swap.
// On error the rundown is left unchanged.
func (c *Controller) Execute(ctx context.Context, req Request) (actions.Command, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return actions.Command{}, ErrClosed
	}

	now := c.config.Now()
	cmd, err := c.executeLocked(ctx, req, now)
	if err != nil {
		result := "error"
		if errors.Is(err, ErrRejected) {
			result = "rejected"
		}
		c.countCommand(req.Op.String(), result)
		zlog.Warn().Msgf("controller: %s group=%s part=%s source=%s failed: %v", req.Op, req.GroupID, req.PartID, req.Source, err)
		return actions.Command{}, err
	}

	c.history.Push(cmd)
	c.countCommand(req.Op.String(), "ok")
	c.broadcastLocked(notification.MessageStateChanged, cmd, now)
	zlog.Info().Msgf("controller: %s group=%s part=%s source=%s changed=%v", req.Op, req.GroupID, req.PartID, req.Source, cmd.Changed())
	return cmd, nil
}

func (c *Controller) executeLocked(ctx context.Context, req Request, now int64) (actions.Command, error) {
	g, err := c.rundown.Group(req.GroupID)
	if err != nil {
		return actions.Command{}, err
	}

	result := c.guards.Execute(ctx, guard.Request{
		Op:      req.Op,
		GroupID: req.GroupID,
		PartID:  req.PartID,
		Source:  req.Source,
		At:      now,
	}, g)
	if !result.Accepted {
		return actions.Command{}, errors.Mark(&RejectedError{Code: result.Code}, ErrRejected)
	}

	next, cmd, err := dispatch(g, req, now)
	if err != nil {
		return actions.Command{}, err
	}
	if err := c.commitLocked(next, now); err != nil {
		return actions.Command{}, err
	}
	return cmd, nil
}

// dispatch maps a request onto the action layer.
func dispatch(g rundown.Group, req Request, now int64) (rundown.Group, actions.Command, error) {
	switch req.Op {
	case actions.OpPlayPart:
		return actions.PlayPart(g, req.PartID, now)
	case actions.OpPausePart:
		return actions.PausePart(g, req.PartID, req.PauseTime, now)
	case actions.OpStopPart:
		return actions.StopPart(g, req.PartID, now)
	case actions.OpPlayStopPart:
		return actions.PlayStopPart(g, req.PartID, now)
	case actions.OpPlayGroup:
		return actions.PlayGroup(g, now)
	case actions.OpStopGroup:
		return actions.StopGroup(g, now)
	case actions.OpPlayNext:
		return actions.PlayNext(g, now)
	case actions.OpPlayPrev:
		return actions.PlayPrev(g, now)
	case actions.OpActivateSchedule:
		return actions.ActivateSchedule(g, now)
	default:
		return g, actions.Command{}, errors.Wrapf(ErrUnsupportedOp, "%s", req.Op)
	}
}

// Undo reverts the most recent command.
func (c *Controller) Undo(ctx context.Context) (actions.Command, error) {
	return c.travel(c.history.PeekUndo, c.history.Undo, actions.Command.Revert, notification.MessageUndone, ErrNothingToUndo)
}

// Redo applies the most recently undone command again.
func (c *Controller) Redo(ctx context.Context) (actions.Command, error) {
	return c.travel(c.history.PeekRedo, c.history.Redo, actions.Command.Apply, notification.MessageRedone, ErrNothingToRedo)
}

// travel moves through the history. The command only changes stacks once
// the state swap succeeded.
func (c *Controller) travel(
	peek func() (actions.Command, bool),
	pop func() (actions.Command, bool),
	apply func(actions.Command, rundown.Group) rundown.Group,
	msgType notification.MessageType,
	empty error,
) (actions.Command, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return actions.Command{}, ErrClosed
	}

	cmd, ok := peek()
	if !ok {
		return actions.Command{}, empty
	}

	now := c.config.Now()
	g, err := c.rundown.Group(cmd.GroupID)
	if err != nil {
		return actions.Command{}, err
	}
	if err := c.commitLocked(apply(cmd, g), now); err != nil {
		return actions.Command{}, err
	}
	pop()

	c.countCommand(msgType.String(), "ok")
	c.broadcastLocked(msgType, cmd, now)
	zlog.Info().Msgf("controller: %s %s group=%s part=%s", msgType, cmd.Op, cmd.GroupID, cmd.PartID)
	return cmd, nil
}

// FireTrigger executes the command of the trigger with the given label.
func (c *Controller) FireTrigger(ctx context.Context, label string) (actions.Command, error) {
	if c.config.Triggers == nil {
		return actions.Command{}, errors.Wrapf(trigger.ErrTriggerNotFound, "label %q", label)
	}
	t, err := c.config.Triggers.Get(label)
	if err != nil {
		return actions.Command{}, err
	}

	d := t.Resolve()
	return c.Execute(ctx, Request{
		Op:        d.Op,
		GroupID:   d.GroupID,
		PartID:    d.PartID,
		PauseTime: d.PauseTime,
		Source:    guard.SourceTrigger,
	})
}

// CheckSchedules starts every group whose schedule came due since the last
// check and returns the number of groups started.
func (c *Controller) CheckSchedules() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0
	}

	now := c.config.Now()
	activated := 0
	for _, g := range c.rundown.Groups() {
		after := c.lastCheck[g.ID]
		c.lastCheck[g.ID] = now
		// Disabled groups never start on their own
		if g.Schedule == nil || g.Disabled {
			continue
		}
		at, due := g.Schedule.DueOccurrence(after, now)
		if !due {
			continue
		}

		result := c.guards.Execute(c.ctx, guard.Request{
			Op:      actions.OpActivateSchedule,
			GroupID: g.ID,
			Source:  guard.SourceSchedule,
			At:      now,
		}, g)
		if !result.Accepted {
			zlog.Warn().Msgf("controller: scheduled start of group %s rejected: %s", g.ID, result.Code)
			c.refreshLocked(g, now)
			continue
		}

		next, cmd, err := actions.ActivateSchedule(g, at)
		if err == nil {
			err = c.commitLocked(next, now)
		}
		if err != nil {
			zlog.Error().Msgf("controller: scheduled start of group %s failed: %v", g.ID, err)
			c.refreshLocked(g, now)
			continue
		}

		activated++
		if c.config.Metrics != nil {
			c.config.Metrics.IncScheduleActivations()
		}
		c.broadcastLocked(notification.MessageScheduleActivated, cmd, now)
		zlog.Info().Msgf("controller: group %s started by schedule at %d", g.ID, at)
	}
	return activated
}

// PlayData returns the play data of the group at the current time.
func (c *Controller) PlayData(groupID string) (playdata.GroupPlayData, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playDataLocked(groupID, c.config.Now())
}

func (c *Controller) playDataLocked(groupID string, now int64) (playdata.GroupPlayData, error) {
	p, ok := c.prepared[groupID]
	if !ok {
		return playdata.GroupPlayData{}, errors.Wrapf(rundown.ErrGroupNotFound, "group %s", groupID)
	}
	return playdata.Query(p, now), nil
}

// Timeline returns the timeline objects of the group.
func (c *Controller) Timeline(groupID string) ([]timeline.Object, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.prepared[groupID]
	if !ok {
		return nil, errors.Wrapf(rundown.ErrGroupNotFound, "group %s", groupID)
	}
	return timeline.Compile(groupID, p), nil
}

// Group returns a copy of the group.
func (c *Controller) Group(groupID string) (rundown.Group, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rundown.Group(groupID)
}

// Snapshot returns every group with its play data, in rundown order.
func (c *Controller) Snapshot() []GroupStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.config.Now()
	groups := c.rundown.Groups()
	statuses := make([]GroupStatus, 0, len(groups))
	for _, g := range groups {
		data, _ := c.playDataLocked(g.ID, now)
		statuses = append(statuses, GroupStatus{
			Group:    g,
			State:    StateOf(data),
			PlayData: data,
		})
	}
	return statuses
}

// PlayingGroups returns the number of groups with at least one active part.
func (c *Controller) PlayingGroups() int {
	n := 0
	for _, s := range c.Snapshot() {
		if s.State != StateIdle {
			n++
		}
	}
	return n
}

// HistoryLen returns the number of commands that can be undone and redone.
func (c *Controller) HistoryLen() (undo, redo int) {
	return c.history.Len()
}

// Events subscribes to playout messages. Call Unsubscribe with the returned ID when done.
func (c *Controller) Events() (string, <-chan notification.Message) {
	return c.hub.Subscribe(c.config.EventBuffer)
}

// Unsubscribe stops the subscription.
func (c *Controller) Unsubscribe(id string) {
	c.hub.Unsubscribe(id)
}

// SubscriberCount returns the number of event subscribers.
func (c *Controller) SubscriberCount() int {
	return c.hub.SubscriberCount()
}

// Close stops the schedule loop and closes every subscription.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.cancel()
	c.mu.Unlock()

	c.wg.Wait()
	c.hub.Close()
}

// commitLocked prepares the group and swaps it into the rundown.
// Must be called with lock held.
func (c *Controller) commitLocked(g rundown.Group, now int64) error {
	next, err := c.rundown.WithGroup(g)
	if err != nil {
		return err
	}
	if err := c.prepareLocked(g, now); err != nil {
		return err
	}
	c.rundown = next
	return nil
}

// prepareLocked refreshes the cached play data of the group.
// Must be called with lock held.
func (c *Controller) prepareLocked(g rundown.Group, now int64) error {
	start := time.Now()
	p, err := playdata.Prepare(g, now)
	if c.config.Metrics != nil {
		c.config.Metrics.ObservePrepare(time.Since(start))
	}
	if err != nil {
		return errors.Wrapf(err, "group %s", g.ID)
	}
	c.prepared[g.ID] = p
	return nil
}

// refreshLocked rebuilds the cached play data of a group whose scheduled
// start did not happen, so it no longer shows the start.
// Must be called with lock held.
func (c *Controller) refreshLocked(g rundown.Group, now int64) {
	if err := c.prepareLocked(g, now); err != nil {
		zlog.Error().Msgf("controller: group %s: %v", g.ID, err)
	}
}

// broadcastLocked notifies subscribers about a command.
// Must be called with lock held.
func (c *Controller) broadcastLocked(t notification.MessageType, cmd actions.Command, now int64) {
	data, _ := c.playDataLocked(cmd.GroupID, now)
	c.hub.Broadcast(notification.Message{
		Type:     t,
		GroupID:  cmd.GroupID,
		PartID:   cmd.PartID,
		Command:  cmd,
		PlayData: data,
	})
}

func (c *Controller) countCommand(op, result string) {
	if c.config.Metrics != nil {
		c.config.Metrics.IncCommands(op, result)
	}
}

// wallClockNow returns the wall clock in epoch ms, with the monotonic reading stripped.
func wallClockNow() int64 {
	return toWallTime(time.Now()).UnixMilli()
}

// toWallTime returns the time with monotonic clock stripped.
func toWallTime(t time.Time) time.Time {
	return time.Unix(t.Unix(), int64(t.Nanosecond()))
}
