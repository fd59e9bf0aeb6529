// Package trigger maps configured triggers, such as hardware panel buttons,
// to playout commands.
package trigger

import (
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/osa030/cuebox/internal/app/actions"
)

// Errors
var (
	ErrTriggerNotFound = errors.New("trigger not found")
	ErrUnknownAction   = errors.New("unknown trigger action")
)

// Action is what a trigger does when fired.
type Action int

const (
	ActionPlay Action = iota
	ActionStop
	ActionPlayStop
	ActionPause
	ActionNext
	ActionPrevious
)

// String returns the string representation of the action.
func (a Action) String() string {
	switch a {
	case ActionPlay:
		return "play"
	case ActionStop:
		return "stop"
	case ActionPlayStop:
		return "playStop"
	case ActionPause:
		return "pause"
	case ActionNext:
		return "next"
	case ActionPrevious:
		return "previous"
	default:
		return "unknown"
	}
}

// ParseAction parses the string representation of an action.
func ParseAction(s string) (Action, error) {
	for a := ActionPlay; a <= ActionPrevious; a++ {
		if a.String() == s {
			return a, nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownAction, "%q", s)
}

// Config describes a trigger as written in the configuration file.
type Config struct {
	Label    string         `yaml:"label" validate:"required"`
	Action   string         `yaml:"action" validate:"required,oneof=play stop playStop pause next previous"`
	GroupID  string         `yaml:"group" validate:"required"`
	PartID   string         `yaml:"part"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// PauseSettings represents the settings of a pause trigger.
type PauseSettings struct {
	// AtMs cues the part at this position. Nil pauses at the current playhead.
	AtMs *int64 `yaml:"at_ms" mapstructure:"at_ms" validate:"omitempty,gte=0"`
}

// Trigger is a validated trigger.
type Trigger struct {
	Label   string
	Action  Action
	GroupID string
	PartID  string
	Pause   PauseSettings
}

// Dispatch is the command a fired trigger resolves to.
type Dispatch struct {
	Op        actions.Op
	GroupID   string
	PartID    string
	PauseTime *int64
}

// New validates the configuration and creates a trigger.
func New(c Config) (*Trigger, error) {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return nil, errors.Wrapf(err, "trigger %q", c.Label)
	}

	action, err := ParseAction(c.Action)
	if err != nil {
		return nil, errors.Wrapf(err, "trigger %q", c.Label)
	}

	t := &Trigger{
		Label:   c.Label,
		Action:  action,
		GroupID: c.GroupID,
		PartID:  c.PartID,
	}

	switch action {
	case ActionPlayStop, ActionPause:
		if c.PartID == "" {
			return nil, errors.Newf("trigger %q: action %s requires a part", c.Label, action)
		}
	case ActionNext, ActionPrevious:
		if c.PartID != "" {
			return nil, errors.Newf("trigger %q: action %s applies to the whole group", c.Label, action)
		}
	case ActionPlay, ActionStop:
	}

	if action == ActionPause {
		settings, err := decodePauseSettings(c.Settings)
		if err != nil {
			return nil, errors.Wrapf(err, "trigger %q", c.Label)
		}
		t.Pause = settings
	}
	return t, nil
}

func decodePauseSettings(settings map[string]any) (PauseSettings, error) {
	var s PauseSettings

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &s,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return s, errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return s, errors.Wrap(err, "failed to decode settings")
	}

	if err := defaults.Set(&s); err != nil {
		return s, errors.Wrap(err, "failed to set defaults")
	}

	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		return s, errors.Wrap(err, "validation failed")
	}
	return s, nil
}

// Resolve returns the command the trigger fires.
func (t *Trigger) Resolve() Dispatch {
	d := Dispatch{GroupID: t.GroupID, PartID: t.PartID}
	switch t.Action {
	case ActionPlay:
		d.Op = actions.OpPlayPart
		if t.PartID == "" {
			d.Op = actions.OpPlayGroup
		}
	case ActionStop:
		d.Op = actions.OpStopPart
		if t.PartID == "" {
			d.Op = actions.OpStopGroup
		}
	case ActionPlayStop:
		d.Op = actions.OpPlayStopPart
	case ActionPause:
		d.Op = actions.OpPausePart
		if t.Pause.AtMs != nil {
			at := *t.Pause.AtMs
			d.PauseTime = &at
		}
	case ActionNext:
		d.Op = actions.OpPlayNext
	case ActionPrevious:
		d.Op = actions.OpPlayPrev
	}
	return d
}

// Set holds triggers by label.
type Set struct {
	triggers map[string]*Trigger
}

// NewSet validates every configuration and builds the set.
func NewSet(configs []Config) (*Set, error) {
	s := &Set{triggers: make(map[string]*Trigger, len(configs))}
	for _, c := range configs {
		if _, ok := s.triggers[c.Label]; ok {
			return nil, errors.Newf("duplicate trigger label %q", c.Label)
		}
		t, err := New(c)
		if err != nil {
			return nil, err
		}
		s.triggers[c.Label] = t
	}
	return s, nil
}

// Get returns the trigger with the given label.
func (s *Set) Get(label string) (*Trigger, error) {
	t, ok := s.triggers[label]
	if !ok {
		return nil, errors.Wrapf(ErrTriggerNotFound, "label %q", label)
	}
	return t, nil
}

// Labels returns all trigger labels in sorted order.
func (s *Set) Labels() []string {
	labels := make([]string, 0, len(s.triggers))
	for l := range s.triggers {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}
