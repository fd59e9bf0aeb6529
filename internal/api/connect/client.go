package connect

import (
	"context"

	"connectrpc.com/connect"
)

// PlayoutClient is a client for the playout service.
type PlayoutClient struct {
	listGroups  *connect.Client[Empty, ListGroupsResponse]
	getPlayData *connect.Client[GroupRequest, PlayData]
	getTimeline *connect.Client[GroupRequest, TimelineResponse]
	playPart    *connect.Client[PartRequest, CommandResponse]
	pausePart   *connect.Client[PausePartRequest, CommandResponse]
	stopPart    *connect.Client[PartRequest, CommandResponse]
	playGroup   *connect.Client[GroupRequest, CommandResponse]
	stopGroup   *connect.Client[GroupRequest, CommandResponse]
	playNext    *connect.Client[GroupRequest, CommandResponse]
	playPrev    *connect.Client[GroupRequest, CommandResponse]
	fireTrigger *connect.Client[FireTriggerRequest, CommandResponse]
	undo        *connect.Client[Empty, CommandResponse]
	redo        *connect.Client[Empty, CommandResponse]
	watchEvents *connect.Client[WatchEventsRequest, Event]
}

// NewPlayoutClient creates a client for the playout service at baseURL.
func NewPlayoutClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *PlayoutClient {
	opts = append([]connect.ClientOption{connect.WithCodec(JSONCodec{})}, opts...)
	return &PlayoutClient{
		listGroups:  connect.NewClient[Empty, ListGroupsResponse](httpClient, baseURL+ListGroupsProcedure, opts...),
		getPlayData: connect.NewClient[GroupRequest, PlayData](httpClient, baseURL+GetPlayDataProcedure, opts...),
		getTimeline: connect.NewClient[GroupRequest, TimelineResponse](httpClient, baseURL+GetTimelineProcedure, opts...),
		playPart:    connect.NewClient[PartRequest, CommandResponse](httpClient, baseURL+PlayPartProcedure, opts...),
		pausePart:   connect.NewClient[PausePartRequest, CommandResponse](httpClient, baseURL+PausePartProcedure, opts...),
		stopPart:    connect.NewClient[PartRequest, CommandResponse](httpClient, baseURL+StopPartProcedure, opts...),
		playGroup:   connect.NewClient[GroupRequest, CommandResponse](httpClient, baseURL+PlayGroupProcedure, opts...),
		stopGroup:   connect.NewClient[GroupRequest, CommandResponse](httpClient, baseURL+StopGroupProcedure, opts...),
		playNext:    connect.NewClient[GroupRequest, CommandResponse](httpClient, baseURL+PlayNextProcedure, opts...),
		playPrev:    connect.NewClient[GroupRequest, CommandResponse](httpClient, baseURL+PlayPrevProcedure, opts...),
		fireTrigger: connect.NewClient[FireTriggerRequest, CommandResponse](httpClient, baseURL+FireTriggerProcedure, opts...),
		undo:        connect.NewClient[Empty, CommandResponse](httpClient, baseURL+UndoProcedure, opts...),
		redo:        connect.NewClient[Empty, CommandResponse](httpClient, baseURL+RedoProcedure, opts...),
		watchEvents: connect.NewClient[WatchEventsRequest, Event](httpClient, baseURL+WatchEventsProcedure, opts...),
	}
}

// ListGroups calls PlayoutService.ListGroups.
func (c *PlayoutClient) ListGroups(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[ListGroupsResponse], error) {
	return c.listGroups.CallUnary(ctx, req)
}

// GetPlayData calls PlayoutService.GetPlayData.
func (c *PlayoutClient) GetPlayData(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[PlayData], error) {
	return c.getPlayData.CallUnary(ctx, req)
}

// GetTimeline calls PlayoutService.GetTimeline.
func (c *PlayoutClient) GetTimeline(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[TimelineResponse], error) {
	return c.getTimeline.CallUnary(ctx, req)
}

// PlayPart calls PlayoutService.PlayPart.
func (c *PlayoutClient) PlayPart(ctx context.Context, req *connect.Request[PartRequest]) (*connect.Response[CommandResponse], error) {
	return c.playPart.CallUnary(ctx, req)
}

// PausePart calls PlayoutService.PausePart.
func (c *PlayoutClient) PausePart(ctx context.Context, req *connect.Request[PausePartRequest]) (*connect.Response[CommandResponse], error) {
	return c.pausePart.CallUnary(ctx, req)
}

// StopPart calls PlayoutService.StopPart.
func (c *PlayoutClient) StopPart(ctx context.Context, req *connect.Request[PartRequest]) (*connect.Response[CommandResponse], error) {
	return c.stopPart.CallUnary(ctx, req)
}

// PlayGroup calls PlayoutService.PlayGroup.
func (c *PlayoutClient) PlayGroup(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[CommandResponse], error) {
	return c.playGroup.CallUnary(ctx, req)
}

// StopGroup calls PlayoutService.StopGroup.
func (c *PlayoutClient) StopGroup(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[CommandResponse], error) {
	return c.stopGroup.CallUnary(ctx, req)
}

// PlayNext calls PlayoutService.PlayNext.
func (c *PlayoutClient) PlayNext(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[CommandResponse], error) {
	return c.playNext.CallUnary(ctx, req)
}

// PlayPrev calls PlayoutService.PlayPrev.
func (c *PlayoutClient) PlayPrev(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[CommandResponse], error) {
	return c.playPrev.CallUnary(ctx, req)
}

// FireTrigger calls PlayoutService.FireTrigger.
func (c *PlayoutClient) FireTrigger(ctx context.Context, req *connect.Request[FireTriggerRequest]) (*connect.Response[CommandResponse], error) {
	return c.fireTrigger.CallUnary(ctx, req)
}

// Undo calls PlayoutService.Undo.
func (c *PlayoutClient) Undo(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[CommandResponse], error) {
	return c.undo.CallUnary(ctx, req)
}

// Redo calls PlayoutService.Redo.
func (c *PlayoutClient) Redo(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[CommandResponse], error) {
	return c.redo.CallUnary(ctx, req)
}

// WatchEvents calls PlayoutService.WatchEvents.
func (c *PlayoutClient) WatchEvents(ctx context.Context, req *connect.Request[WatchEventsRequest]) (*connect.ServerStreamForClient[Event], error) {
	return c.watchEvents.CallServerStream(ctx, req)
}
