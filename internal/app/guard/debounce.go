package guard

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/cuebox/internal/domain/rundown"
)

// DebounceConfig represents the configuration for DebounceGuard.
type DebounceConfig struct {
	IntervalMs int64 `yaml:"interval_ms" mapstructure:"interval_ms" default:"250" validate:"gte=1,lte=10000"`
}

// DebounceGuard rejects a command arriving too soon after the previous
// accepted command on the same group. It protects against double presses
// on hardware panels.
type DebounceGuard struct {
	config *DebounceConfig

	mu   sync.Mutex
	last map[string]int64
}

// NewDebounceGuard creates a new debounce guard.
func NewDebounceGuard() *DebounceGuard {
	return &DebounceGuard{
		last: make(map[string]int64),
	}
}

func (g *DebounceGuard) Name() string {
	return "debounce_guard"
}

func (g *DebounceGuard) Description() string {
	return "Rejects repeated commands on a group within a short interval"
}

func (g *DebounceGuard) ReturnCodes() []string {
	return []string{"debounced"}
}

func (g *DebounceGuard) ValidateConfig(settings map[string]any) error {
	var config DebounceConfig

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &config,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}

	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}

	if err := defaults.Set(&config); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}

	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return errors.Wrap(err, "validation failed")
	}

	g.config = &config
	zlog.Info().Msgf("debounce guard config: %+v", config)
	return nil
}

func (g *DebounceGuard) AppliesTo(source Source) bool {
	return source == SourceOperator || source == SourceTrigger
}

func (g *DebounceGuard) Check(ctx context.Context, req Request, group rundown.Group) Result {
	if g.config == nil {
		return Accept()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if last, ok := g.last[req.GroupID]; ok && req.At-last < g.config.IntervalMs {
		return Reject("debounced")
	}
	g.last[req.GroupID] = req.At
	return Accept()
}

func init() {
	Register("debounce_guard", func() Guard {
		return NewDebounceGuard()
	})
}
