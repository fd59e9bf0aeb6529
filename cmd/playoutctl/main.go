// Package main provides the playout control CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/cuebox/internal/api/connect"
)

// pauseAtSet reports whether --at was given; 0 is a valid pause position.
var pauseAtSet bool

var (
	app      = kingpin.New("playoutctl", "cuebox playout control client")
	server   = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	operator = app.Flag("operator", "Operator name (or set CUEBOX_OPERATOR env)").Envar("CUEBOX_OPERATOR").Default("cli").String()

	// list command
	listCmd = app.Command("list", "List groups and their state").Alias("ls")

	// status command
	statusCmd   = app.Command("status", "Show the play data of a group")
	statusGroup = statusCmd.Arg("group", "Group ID").Required().String()

	// timeline command
	timelineCmd   = app.Command("timeline", "Show the timeline of a group")
	timelineGroup = timelineCmd.Arg("group", "Group ID").Required().String()

	// play command
	playCmd   = app.Command("play", "Play a group, or a part when given")
	playGroup = playCmd.Arg("group", "Group ID").Required().String()
	playPart  = playCmd.Arg("part", "Part ID").String()

	// stop command
	stopCmd   = app.Command("stop", "Stop a group, or a part when given")
	stopGroup = stopCmd.Arg("group", "Group ID").Required().String()
	stopPart  = stopCmd.Arg("part", "Part ID").String()

	// pause command
	pauseCmd   = app.Command("pause", "Pause or resume a part")
	pauseGroup = pauseCmd.Arg("group", "Group ID").Required().String()
	pausePart  = pauseCmd.Arg("part", "Part ID").Required().String()
	pauseAt    = pauseCmd.Flag("at", "Pause position in ms (default: current playhead)").IsSetByUser(&pauseAtSet).Int64()

	// next command
	nextCmd   = app.Command("next", "Play the next part of a group")
	nextGroup = nextCmd.Arg("group", "Group ID").Required().String()

	// prev command
	prevCmd   = app.Command("prev", "Play the previous part of a group")
	prevGroup = prevCmd.Arg("group", "Group ID").Required().String()

	// fire command
	fireCmd   = app.Command("fire", "Fire a trigger")
	fireLabel = fireCmd.Arg("label", "Trigger label").Required().String()

	// undo/redo commands
	undoCmd = app.Command("undo", "Undo the last command")
	redoCmd = app.Command("redo", "Redo the last undone command")

	// watch command
	watchCmd   = app.Command("watch", "Stream playout events")
	watchGroup = watchCmd.Arg("group", "Only events of this group").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := apiconnect.NewPlayoutClient(http.DefaultClient, *server)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch command {
	case listCmd.FullCommand():
		err = list(ctx, client)
	case statusCmd.FullCommand():
		err = status(ctx, client, *statusGroup)
	case timelineCmd.FullCommand():
		err = showTimeline(ctx, client, *timelineGroup)
	case playCmd.FullCommand():
		if *playPart != "" {
			err = runCommand(client.PlayPart(ctx, request(&apiconnect.PartRequest{GroupID: *playGroup, PartID: *playPart})))
		} else {
			err = runCommand(client.PlayGroup(ctx, request(&apiconnect.GroupRequest{GroupID: *playGroup})))
		}
	case stopCmd.FullCommand():
		if *stopPart != "" {
			err = runCommand(client.StopPart(ctx, request(&apiconnect.PartRequest{GroupID: *stopGroup, PartID: *stopPart})))
		} else {
			err = runCommand(client.StopGroup(ctx, request(&apiconnect.GroupRequest{GroupID: *stopGroup})))
		}
	case pauseCmd.FullCommand():
		msg := &apiconnect.PausePartRequest{GroupID: *pauseGroup, PartID: *pausePart}
		if pauseAtSet {
			msg.PauseTime = pauseAt
		}
		err = runCommand(client.PausePart(ctx, request(msg)))
	case nextCmd.FullCommand():
		err = runCommand(client.PlayNext(ctx, request(&apiconnect.GroupRequest{GroupID: *nextGroup})))
	case prevCmd.FullCommand():
		err = runCommand(client.PlayPrev(ctx, request(&apiconnect.GroupRequest{GroupID: *prevGroup})))
	case fireCmd.FullCommand():
		err = runCommand(client.FireTrigger(ctx, request(&apiconnect.FireTriggerRequest{Label: *fireLabel})))
	case undoCmd.FullCommand():
		err = runCommand(client.Undo(ctx, request(&apiconnect.Empty{})))
	case redoCmd.FullCommand():
		err = runCommand(client.Redo(ctx, request(&apiconnect.Empty{})))
	case watchCmd.FullCommand():
		err = watch(ctx, client, *watchGroup)
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// request wraps msg and tags it with the operator header.
func request[T any](msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set(apiconnect.OperatorHeader, *operator)
	return req
}

func runCommand(resp *connect.Response[apiconnect.CommandResponse], err error) error {
	if err != nil {
		return err
	}

	c := resp.Msg
	if !c.Changed {
		fmt.Printf("%s on %s: no change\n", c.Op, c.GroupID)
		return nil
	}
	if c.PartID != "" {
		fmt.Printf("%s on %s/%s (command %s)\n", c.Op, c.GroupID, c.PartID, c.CommandID)
	} else {
		fmt.Printf("%s on %s (command %s)\n", c.Op, c.GroupID, c.CommandID)
	}
	printPlayData(c.PlayData)
	return nil
}

func list(ctx context.Context, client *apiconnect.PlayoutClient) error {
	resp, err := client.ListGroups(ctx, request(&apiconnect.Empty{}))
	if err != nil {
		return err
	}

	fmt.Printf("Groups (%d):\n", len(resp.Msg.Groups))
	for _, g := range resp.Msg.Groups {
		mode := "multi"
		if g.OneAtATime {
			mode = "one-at-a-time"
		}
		name := g.Name
		if g.Disabled {
			name = "[DISABLED] " + name
		}
		if g.Locked {
			name = "[LOCKED] " + name
		}
		fmt.Printf("  %s: %s (%s, %s, parts: %d)\n", g.ID, name, mode, g.State, len(g.Parts))
	}
	return nil
}

func status(ctx context.Context, client *apiconnect.PlayoutClient, groupID string) error {
	resp, err := client.GetPlayData(ctx, request(&apiconnect.GroupRequest{GroupID: groupID}))
	if err != nil {
		return err
	}

	fmt.Printf("\n=== %s ===\n", groupID)
	printPlayData(*resp.Msg)
	fmt.Println()
	return nil
}

func showTimeline(ctx context.Context, client *apiconnect.PlayoutClient, groupID string) error {
	resp, err := client.GetTimeline(ctx, request(&apiconnect.GroupRequest{GroupID: groupID}))
	if err != nil {
		return err
	}

	fmt.Printf("Timeline of %s (%d objects):\n", resp.Msg.GroupID, len(resp.Msg.Objects))
	for _, o := range resp.Msg.Objects {
		end := "open"
		if o.End != nil {
			end = fmt.Sprintf("%d", *o.End)
		}
		fmt.Printf("  %s: part=%s start=%d end=%s paused=%v\n", o.ID, o.PartID, o.Start, end, o.Paused)
	}
	return nil
}

func watch(ctx context.Context, client *apiconnect.PlayoutClient, groupID string) error {
	stream, err := client.WatchEvents(ctx, request(&apiconnect.WatchEventsRequest{GroupID: groupID}))
	if err != nil {
		return err
	}
	defer stream.Close()

	for stream.Receive() {
		e := stream.Msg()
		fmt.Printf("#%d %s group=%s op=%s part=%s\n", e.SequenceNo, e.Type, e.GroupID, e.Op, e.PartID)
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func printPlayData(d apiconnect.PlayData) {
	fmt.Printf("  Group Playing: %v, Any Part Playing: %v, All Paused: %v\n",
		d.GroupIsPlaying, d.AnyPartIsPlaying, d.AllPlayingPartsArePaused)
	if d.SectionTimeToEnd != nil {
		fmt.Printf("  Section ends in %d ms (%s)\n", *d.SectionTimeToEnd, d.SectionEndAction)
	}

	ids := make([]string, 0, len(d.Playheads))
	for id := range d.Playheads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		ph := d.Playheads[id]
		state := "playing"
		if ph.PartPauseTime != nil {
			state = "paused"
		}
		fmt.Printf("  %s: %s at %d ms, then %s\n", id, state, ph.PlayheadTime, ph.EndAction)
	}

	for _, id := range sortedKeys(d.Countdowns) {
		for _, c := range d.Countdowns[id] {
			fmt.Printf("  %s: starts in %d ms\n", id, c.Duration)
		}
	}
}

func sortedKeys(m map[string][]apiconnect.Countdown) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
