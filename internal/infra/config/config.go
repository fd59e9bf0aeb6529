// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/osa030/cuebox/internal/domain/rundown"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig           `yaml:"server"`
	Log      LogConfig              `yaml:"log"`
	Playout  PlayoutConfig          `yaml:"playout"`
	Rundown  RundownConfig          `yaml:"rundown"`
	Guards   map[string]GuardConfig `yaml:"guards"`
	Triggers []TriggerConfig        `yaml:"triggers" validate:"dive"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr        string      `yaml:"addr" default:":8080"`
	MetricsPath string      `yaml:"metrics_path" default:"/metrics" validate:"startswith=/"`
	Hooks       HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn warning error"`
	Output string `yaml:"output" default:"stdout"`
}

// PlayoutConfig represents playout control configuration.
type PlayoutConfig struct {
	ScheduleCheckIntervalMs int `yaml:"schedule_check_interval_ms" default:"100" validate:"gte=10,lte=60000"`
	UndoDepth               int `yaml:"undo_depth" default:"100" validate:"gte=1,lte=10000"`
	EventBuffer             int `yaml:"event_buffer" default:"64" validate:"gte=1,lte=4096"`
}

// RundownConfig represents the rundown played by the server.
type RundownConfig struct {
	ID     string        `yaml:"id" default:"rundown0"`
	Name   string        `yaml:"name" default:"Rundown"`
	Groups []GroupConfig `yaml:"groups" validate:"dive"`
}

// GroupConfig represents a group of parts.
type GroupConfig struct {
	ID         string          `yaml:"id"`
	Name       string          `yaml:"name" validate:"required"`
	OneAtATime bool            `yaml:"one_at_a_time"`
	AutoPlay   bool            `yaml:"auto_play"`
	Loop       bool            `yaml:"loop"`
	Disabled   bool            `yaml:"disabled"`
	Locked     bool            `yaml:"locked"`
	Schedule   *ScheduleConfig `yaml:"schedule"`
	Parts      []PartConfig    `yaml:"parts" validate:"dive"`
}

// PartConfig represents a single part.
type PartConfig struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name" validate:"required"`
	DurationMs *int64 `yaml:"duration_ms" validate:"omitempty,gte=0"` // Omitted means infinite
	Loop       bool   `yaml:"loop"`
	Disabled   bool   `yaml:"disabled"`
	Locked     bool   `yaml:"locked"`
}

// ScheduleConfig represents a scheduled group start.
type ScheduleConfig struct {
	Inactive    bool   `yaml:"inactive"` // Keeps the schedule configured but disarmed
	StartTime   string `yaml:"start_time" validate:"required"`
	IntervalMs  int64  `yaml:"interval_ms" validate:"gte=0"`
	RepeatUntil string `yaml:"repeat_until"`
}

// GuardConfig represents a guard's configuration.
type GuardConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// TriggerConfig represents a trigger bound to a group or part.
type TriggerConfig struct {
	Label    string         `yaml:"label" validate:"required"`
	Action   string         `yaml:"action" validate:"required"`
	Group    string         `yaml:"group" validate:"required"`
	Part     string         `yaml:"part"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses configuration from YAML data.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("CUEBOX_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("CUEBOX_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	for _, g := range c.Rundown.Groups {
		if g.Schedule == nil {
			continue
		}
		if _, err := g.Schedule.toSchedule(); err != nil {
			return errors.Wrapf(err, "group %q", g.Name)
		}
	}

	return nil
}

// IsGuardEnabled checks if a guard is enabled.
func (c *Config) IsGuardEnabled(name string) bool {
	if g, ok := c.Guards[name]; ok {
		return g.Enabled
	}
	return false
}

// ScheduleCheckInterval returns the schedule check interval.
func (c *Config) ScheduleCheckInterval() time.Duration {
	return time.Duration(c.Playout.ScheduleCheckIntervalMs) * time.Millisecond
}

// BuildRundown converts the configured groups into a rundown.
// Groups and parts without an ID get a generated one.
func (c *Config) BuildRundown() (rundown.Rundown, error) {
	groups := make([]rundown.Group, 0, len(c.Rundown.Groups))
	for _, gc := range c.Rundown.Groups {
		g := rundown.Group{
			ID:         idOrNew(gc.ID),
			Name:       gc.Name,
			OneAtATime: gc.OneAtATime,
			AutoPlay:   gc.AutoPlay,
			Loop:       gc.Loop,
			Disabled:   gc.Disabled,
			Locked:     gc.Locked,
			Parts:      make([]rundown.Part, 0, len(gc.Parts)),
		}
		if gc.Schedule != nil {
			s, err := gc.Schedule.toSchedule()
			if err != nil {
				return rundown.Rundown{}, errors.Wrapf(err, "group %q", gc.Name)
			}
			g.Schedule = &s
		}
		for _, pc := range gc.Parts {
			p := rundown.Part{
				ID:       idOrNew(pc.ID),
				Name:     pc.Name,
				Loop:     pc.Loop,
				Disabled: pc.Disabled,
				Locked:   pc.Locked,
			}
			if pc.DurationMs != nil {
				p.Duration = rundown.Ms(*pc.DurationMs)
			}
			g.Parts = append(g.Parts, p)
		}
		groups = append(groups, g)
	}

	rd, err := rundown.New(c.Rundown.ID, c.Rundown.Name, groups...)
	if err != nil {
		return rundown.Rundown{}, errors.Wrap(err, "invalid rundown")
	}
	return rd, nil
}

func (s ScheduleConfig) toSchedule() (rundown.Schedule, error) {
	start, err := time.Parse(time.RFC3339, s.StartTime)
	if err != nil {
		return rundown.Schedule{}, errors.Wrap(err, "failed to parse start_time")
	}
	sched := rundown.Schedule{
		Activate:  !s.Inactive,
		StartTime: start.UnixMilli(),
		Interval:  s.IntervalMs,
	}
	if s.RepeatUntil != "" {
		until, err := time.Parse(time.RFC3339, s.RepeatUntil)
		if err != nil {
			return rundown.Schedule{}, errors.Wrap(err, "failed to parse repeat_until")
		}
		if !start.Before(until) {
			return rundown.Schedule{}, errors.Newf("start_time (%s) must be before repeat_until (%s)", s.StartTime, s.RepeatUntil)
		}
		sched.RepeatUntil = rundown.Ms(until.UnixMilli())
	}
	return sched, nil
}

func idOrNew(id string) string {
	if id != "" {
		return id
	}
	return uuid.New().String()
}
