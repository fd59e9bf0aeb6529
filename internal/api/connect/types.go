package connect

import (
	"github.com/osa030/cuebox/internal/app/actions"
	"github.com/osa030/cuebox/internal/app/controller"
	"github.com/osa030/cuebox/internal/app/notification"
	"github.com/osa030/cuebox/internal/app/playdata"
	"github.com/osa030/cuebox/internal/app/timeline"
	"github.com/osa030/cuebox/internal/domain/rundown"
)

// Empty is a message without fields.
type Empty struct{}

// GroupRequest targets a group.
type GroupRequest struct {
	GroupID string `json:"groupId"`
}

// PartRequest targets a part of a group.
type PartRequest struct {
	GroupID string `json:"groupId"`
	PartID  string `json:"partId"`
}

// PausePartRequest pauses a part, at PauseTime when set.
type PausePartRequest struct {
	GroupID   string `json:"groupId"`
	PartID    string `json:"partId"`
	PauseTime *int64 `json:"pauseTime,omitempty"`
}

// FireTriggerRequest fires a configured trigger.
type FireTriggerRequest struct {
	Label string `json:"label"`
}

// WatchEventsRequest subscribes to playout events, of one group when GroupID is set.
type WatchEventsRequest struct {
	GroupID string `json:"groupId,omitempty"`
}

// CommandResponse describes an executed command.
type CommandResponse struct {
	CommandID string   `json:"commandId"`
	Op        string   `json:"op"`
	GroupID   string   `json:"groupId"`
	PartID    string   `json:"partId,omitempty"`
	Changed   bool     `json:"changed"`
	PlayData  PlayData `json:"playData"`
}

// ListGroupsResponse lists the rundown.
type ListGroupsResponse struct {
	Groups []GroupInfo `json:"groups"`
}

// GroupInfo describes a group and its current play data.
type GroupInfo struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	State      string     `json:"state"`
	OneAtATime bool       `json:"oneAtATime"`
	AutoPlay   bool       `json:"autoPlay"`
	Loop       bool       `json:"loop"`
	Disabled   bool       `json:"disabled"`
	Locked     bool       `json:"locked"`
	Parts      []PartInfo `json:"parts"`
	PlayData   PlayData   `json:"playData"`
}

// PartInfo describes a part.
type PartInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DurationMs *int64 `json:"durationMs,omitempty"`
	Loop       bool   `json:"loop"`
	Disabled   bool   `json:"disabled"`
	Locked     bool   `json:"locked"`
}

// PlayData is the play data of a group at the time of the response.
type PlayData struct {
	GroupIsPlaying           bool                   `json:"groupIsPlaying"`
	AnyPartIsPlaying         bool                   `json:"anyPartIsPlaying"`
	AllPlayingPartsArePaused bool                   `json:"allPlayingPartsArePaused"`
	Playheads                map[string]Playhead    `json:"playheads"`
	Countdowns               map[string][]Countdown `json:"countdowns"`
	SectionEndTime           *int64                 `json:"sectionEndTime,omitempty"`
	SectionTimeToEnd         *int64                 `json:"sectionTimeToEnd,omitempty"`
	SectionEndAction         string                 `json:"sectionEndAction,omitempty"`
}

// Playhead is the position of a playing part.
type Playhead struct {
	PartID        string `json:"partId"`
	PlayheadTime  int64  `json:"playheadTime"`
	PartStartTime int64  `json:"partStartTime"`
	PartPauseTime *int64 `json:"partPauseTime,omitempty"`
	PartEndTime   *int64 `json:"partEndTime,omitempty"`
	PartDuration  *int64 `json:"partDuration,omitempty"`
	EndAction     string `json:"endAction"`
	FromSchedule  bool   `json:"fromSchedule,omitempty"`
}

// Countdown is an upcoming start of a part.
type Countdown struct {
	Duration  int64 `json:"duration"`
	Timestamp int64 `json:"timestamp"`
}

// TimelineResponse holds the timeline objects of a group.
type TimelineResponse struct {
	GroupID string            `json:"groupId"`
	Objects []timeline.Object `json:"objects"`
}

// Event is a playout notification.
type Event struct {
	Type       string   `json:"type"`
	SequenceNo uint64   `json:"sequenceNo"`
	GroupID    string   `json:"groupId"`
	PartID     string   `json:"partId,omitempty"`
	Op         string   `json:"op,omitempty"`
	PlayData   PlayData `json:"playData"`
}

func toPlayData(d playdata.GroupPlayData) PlayData {
	pd := PlayData{
		GroupIsPlaying:           d.GroupIsPlaying,
		AnyPartIsPlaying:         d.AnyPartIsPlaying,
		AllPlayingPartsArePaused: d.AllPlayingPartsArePaused,
		Playheads:                make(map[string]Playhead, len(d.Playheads)),
		Countdowns:               make(map[string][]Countdown, len(d.Countdowns)),
		SectionEndTime:           d.SectionEndTime,
		SectionTimeToEnd:         d.SectionTimeToEnd,
	}
	if d.SectionEndAction != nil {
		pd.SectionEndAction = d.SectionEndAction.String()
	}
	for id, ph := range d.Playheads {
		pd.Playheads[id] = Playhead{
			PartID:        ph.PartID,
			PlayheadTime:  ph.PlayheadTime,
			PartStartTime: ph.PartStartTime,
			PartPauseTime: ph.PartPauseTime,
			PartEndTime:   ph.PartEndTime,
			PartDuration:  ph.PartDuration,
			EndAction:     ph.EndAction.String(),
			FromSchedule:  ph.FromSchedule,
		}
	}
	for id, cds := range d.Countdowns {
		out := make([]Countdown, len(cds))
		for i, cd := range cds {
			out[i] = Countdown{Duration: cd.Duration, Timestamp: cd.Timestamp}
		}
		pd.Countdowns[id] = out
	}
	return pd
}

func toGroupInfo(s controller.GroupStatus) GroupInfo {
	g := s.Group
	info := GroupInfo{
		ID:         g.ID,
		Name:       g.Name,
		State:      s.State.String(),
		OneAtATime: g.OneAtATime,
		AutoPlay:   g.AutoPlay,
		Loop:       g.Loop,
		Disabled:   g.Disabled,
		Locked:     g.Locked,
		Parts:      make([]PartInfo, len(g.Parts)),
		PlayData:   toPlayData(s.PlayData),
	}
	for i, p := range g.Parts {
		info.Parts[i] = toPartInfo(p)
	}
	return info
}

func toPartInfo(p rundown.Part) PartInfo {
	return PartInfo{
		ID:         p.ID,
		Name:       p.Name,
		DurationMs: p.Duration,
		Loop:       p.Loop,
		Disabled:   p.Disabled,
		Locked:     p.Locked,
	}
}

func toCommandResponse(cmd actions.Command, d playdata.GroupPlayData) *CommandResponse {
	return &CommandResponse{
		CommandID: cmd.ID,
		Op:        cmd.Op.String(),
		GroupID:   cmd.GroupID,
		PartID:    cmd.PartID,
		Changed:   cmd.Changed(),
		PlayData:  toPlayData(d),
	}
}

func toEvent(msg notification.Message) *Event {
	return &Event{
		Type:       msg.Type.String(),
		SequenceNo: msg.SequenceNo,
		GroupID:    msg.GroupID,
		PartID:     msg.PartID,
		Op:         msg.Command.Op.String(),
		PlayData:   toPlayData(msg.PlayData),
	}
}
