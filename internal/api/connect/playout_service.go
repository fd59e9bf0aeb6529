package connect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"

	"github.com/osa030/cuebox/internal/app/actions"
	"github.com/osa030/cuebox/internal/app/controller"
	"github.com/osa030/cuebox/internal/app/guard"
)

// PlayoutServiceName is the fully-qualified name of the playout service.
const PlayoutServiceName = "cuebox.v1.PlayoutService"

// Procedures of the playout service.
const (
	ListGroupsProcedure  = "/" + PlayoutServiceName + "/ListGroups"
	GetPlayDataProcedure = "/" + PlayoutServiceName + "/GetPlayData"
	GetTimelineProcedure = "/" + PlayoutServiceName + "/GetTimeline"
	PlayPartProcedure    = "/" + PlayoutServiceName + "/PlayPart"
	PausePartProcedure   = "/" + PlayoutServiceName + "/PausePart"
	StopPartProcedure    = "/" + PlayoutServiceName + "/StopPart"
	PlayGroupProcedure   = "/" + PlayoutServiceName + "/PlayGroup"
	StopGroupProcedure   = "/" + PlayoutServiceName + "/StopGroup"
	PlayNextProcedure    = "/" + PlayoutServiceName + "/PlayNext"
	PlayPrevProcedure    = "/" + PlayoutServiceName + "/PlayPrev"
	FireTriggerProcedure = "/" + PlayoutServiceName + "/FireTrigger"
	UndoProcedure        = "/" + PlayoutServiceName + "/Undo"
	RedoProcedure        = "/" + PlayoutServiceName + "/Redo"
	WatchEventsProcedure = "/" + PlayoutServiceName + "/WatchEvents"
)

// PlayoutService implements the playout RPC.
type PlayoutService struct {
	controller *controller.Controller
}

// NewPlayoutService creates a new PlayoutService.
func NewPlayoutService(c *controller.Controller) *PlayoutService {
	return &PlayoutService{
		controller: c,
	}
}

// NewPlayoutServiceHandler builds the HTTP handler serving every procedure
// and returns the path prefix it should be mounted on.
func NewPlayoutServiceHandler(svc *PlayoutService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(ListGroupsProcedure, connect.NewUnaryHandler(ListGroupsProcedure, svc.ListGroups, opts...))
	mux.Handle(GetPlayDataProcedure, connect.NewUnaryHandler(GetPlayDataProcedure, svc.GetPlayData, opts...))
	mux.Handle(GetTimelineProcedure, connect.NewUnaryHandler(GetTimelineProcedure, svc.GetTimeline, opts...))
	mux.Handle(PlayPartProcedure, connect.NewUnaryHandler(PlayPartProcedure, svc.PlayPart, opts...))
	mux.Handle(PausePartProcedure, connect.NewUnaryHandler(PausePartProcedure, svc.PausePart, opts...))
	mux.Handle(StopPartProcedure, connect.NewUnaryHandler(StopPartProcedure, svc.StopPart, opts...))
	mux.Handle(PlayGroupProcedure, connect.NewUnaryHandler(PlayGroupProcedure, svc.PlayGroup, opts...))
	mux.Handle(StopGroupProcedure, connect.NewUnaryHandler(StopGroupProcedure, svc.StopGroup, opts...))
	mux.Handle(PlayNextProcedure, connect.NewUnaryHandler(PlayNextProcedure, svc.PlayNext, opts...))
	mux.Handle(PlayPrevProcedure, connect.NewUnaryHandler(PlayPrevProcedure, svc.PlayPrev, opts...))
	mux.Handle(FireTriggerProcedure, connect.NewUnaryHandler(FireTriggerProcedure, svc.FireTrigger, opts...))
	mux.Handle(UndoProcedure, connect.NewUnaryHandler(UndoProcedure, svc.Undo, opts...))
	mux.Handle(RedoProcedure, connect.NewUnaryHandler(RedoProcedure, svc.Redo, opts...))
	mux.Handle(WatchEventsProcedure, connect.NewServerStreamHandler(WatchEventsProcedure, svc.WatchEvents, opts...))
	return "/" + PlayoutServiceName + "/", mux
}

// ListGroups returns every group of the rundown with its play data.
func (s *PlayoutService) ListGroups(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[ListGroupsResponse], error) {
	snapshot := s.controller.Snapshot()
	groups := make([]GroupInfo, len(snapshot))
	for i, status := range snapshot {
		groups[i] = toGroupInfo(status)
	}
	return connect.NewResponse(&ListGroupsResponse{Groups: groups}), nil
}

// GetPlayData returns the play data of a group.
func (s *PlayoutService) GetPlayData(
	ctx context.Context,
	req *connect.Request[GroupRequest],
) (*connect.Response[PlayData], error) {
	if req.Msg.GroupID == "" {
		return nil, invalidArgument("groupId is required")
	}
	data, err := s.controller.PlayData(req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	pd := toPlayData(data)
	return connect.NewResponse(&pd), nil
}

// GetTimeline returns the timeline objects of a group.
func (s *PlayoutService) GetTimeline(
	ctx context.Context,
	req *connect.Request[GroupRequest],
) (*connect.Response[TimelineResponse], error) {
	if req.Msg.GroupID == "" {
		return nil, invalidArgument("groupId is required")
	}
	objects, err := s.controller.Timeline(req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&TimelineResponse{GroupID: req.Msg.GroupID, Objects: objects}), nil
}

// PlayPart plays a part.
func (s *PlayoutService) PlayPart(
	ctx context.Context,
	req *connect.Request[PartRequest],
) (*connect.Response[CommandResponse], error) {
	return s.executePart(ctx, actions.OpPlayPart, req.Msg)
}

// PausePart pauses or resumes a part.
func (s *PlayoutService) PausePart(
	ctx context.Context,
	req *connect.Request[PausePartRequest],
) (*connect.Response[CommandResponse], error) {
	if req.Msg.GroupID == "" || req.Msg.PartID == "" {
		return nil, invalidArgument("groupId and partId are required")
	}
	return s.execute(ctx, controller.Request{
		Op:        actions.OpPausePart,
		GroupID:   req.Msg.GroupID,
		PartID:    req.Msg.PartID,
		PauseTime: req.Msg.PauseTime,
	})
}

// StopPart stops a part.
func (s *PlayoutService) StopPart(
	ctx context.Context,
	req *connect.Request[PartRequest],
) (*connect.Response[CommandResponse], error) {
	return s.executePart(ctx, actions.OpStopPart, req.Msg)
}

// PlayGroup plays a one-at-a-time group from its first part.
func (s *PlayoutService) PlayGroup(
	ctx context.Context,
	req *connect.Request[GroupRequest],
) (*connect.Response[CommandResponse], error) {
	return s.executeGroup(ctx, actions.OpPlayGroup, req.Msg)
}

// StopGroup stops a group.
func (s *PlayoutService) StopGroup(
	ctx context.Context,
	req *connect.Request[GroupRequest],
) (*connect.Response[CommandResponse], error) {
	return s.executeGroup(ctx, actions.OpStopGroup, req.Msg)
}

// PlayNext plays the next part of a one-at-a-time group.
func (s *PlayoutService) PlayNext(
	ctx context.Context,
	req *connect.Request[GroupRequest],
) (*connect.Response[CommandResponse], error) {
	return s.executeGroup(ctx, actions.OpPlayNext, req.Msg)
}

// PlayPrev plays the previous part of a one-at-a-time group.
func (s *PlayoutService) PlayPrev(
	ctx context.Context,
	req *connect.Request[GroupRequest],
) (*connect.Response[CommandResponse], error) {
	return s.executeGroup(ctx, actions.OpPlayPrev, req.Msg)
}

// FireTrigger fires a configured trigger.
func (s *PlayoutService) FireTrigger(
	ctx context.Context,
	req *connect.Request[FireTriggerRequest],
) (*connect.Response[CommandResponse], error) {
	if req.Msg.Label == "" {
		return nil, invalidArgument("label is required")
	}
	cmd, err := s.controller.FireTrigger(ctx, req.Msg.Label)
	if err != nil {
		return nil, toConnectError(err)
	}
	return s.commandResponse(cmd)
}

// Undo reverts the most recent command.
func (s *PlayoutService) Undo(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[CommandResponse], error) {
	cmd, err := s.controller.Undo(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return s.commandResponse(cmd)
}

// Redo applies the most recently undone command again.
func (s *PlayoutService) Redo(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[CommandResponse], error) {
	cmd, err := s.controller.Redo(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return s.commandResponse(cmd)
}

// WatchEvents streams playout events until the client disconnects.
func (s *PlayoutService) WatchEvents(
	ctx context.Context,
	req *connect.Request[WatchEventsRequest],
	stream *connect.ServerStream[Event],
) error {
	id, events := s.controller.Events()
	defer s.controller.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-events:
			if !ok {
				return nil
			}
			if req.Msg.GroupID != "" && msg.GroupID != req.Msg.GroupID {
				continue
			}
			if err := stream.Send(toEvent(msg)); err != nil {
				return errors.Wrap(err, "failed to send event")
			}
		}
	}
}

func (s *PlayoutService) executePart(ctx context.Context, op actions.Op, msg *PartRequest) (*connect.Response[CommandResponse], error) {
	if msg.GroupID == "" || msg.PartID == "" {
		return nil, invalidArgument("groupId and partId are required")
	}
	return s.execute(ctx, controller.Request{Op: op, GroupID: msg.GroupID, PartID: msg.PartID})
}

func (s *PlayoutService) executeGroup(ctx context.Context, op actions.Op, msg *GroupRequest) (*connect.Response[CommandResponse], error) {
	if msg.GroupID == "" {
		return nil, invalidArgument("groupId is required")
	}
	return s.execute(ctx, controller.Request{Op: op, GroupID: msg.GroupID})
}

func (s *PlayoutService) execute(ctx context.Context, req controller.Request) (*connect.Response[CommandResponse], error) {
	req.Source = guard.SourceOperator
	cmd, err := s.controller.Execute(ctx, req)
	if err != nil {
		return nil, toConnectError(err)
	}
	return s.commandResponse(cmd)
}

func (s *PlayoutService) commandResponse(cmd actions.Command) (*connect.Response[CommandResponse], error) {
	data, err := s.controller.PlayData(cmd.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(toCommandResponse(cmd, data)), nil
}
