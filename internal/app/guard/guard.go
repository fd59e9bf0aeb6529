// Package guard provides the guard chain run before a command reaches the action layer.
package guard

import (
	"context"

	"github.com/osa030/cuebox/internal/app/actions"
	"github.com/osa030/cuebox/internal/domain/rundown"
)

// Source identifies who issued a command.
type Source int

const (
	SourceOperator Source = iota
	SourceTrigger
	SourceSchedule
)

// String returns the string representation of the source.
func (s Source) String() string {
	switch s {
	case SourceOperator:
		return "operator"
	case SourceTrigger:
		return "trigger"
	case SourceSchedule:
		return "schedule"
	default:
		return "unknown"
	}
}

// Request represents a command to be checked.
type Request struct {
	Op      actions.Op
	GroupID string
	PartID  string // Empty for group-level operations
	Source  Source
	At      int64
}

// Result represents the result of a guard check.
type Result struct {
	Accepted bool
	Code     string // e.g., "group_locked", "part_locked", "debounced"
}

// Accept returns an accepted result.
func Accept() Result {
	return Result{Accepted: true}
}

// Reject returns a rejected result with the given code.
func Reject(code string) Result {
	return Result{Accepted: false, Code: code}
}

// Guard is the interface for command guards.
type Guard interface {
	// Name returns the guard name (used in config).
	Name() string
	// Description returns a human-readable description.
	Description() string
	// ReturnCodes returns the codes this guard can return.
	ReturnCodes() []string
	// ValidateConfig validates the guard configuration.
	ValidateConfig(settings map[string]any) error
	// AppliesTo returns true if this guard should be applied to commands from the given source.
	AppliesTo(source Source) bool
	// Check performs the guard check against the current state of the group.
	Check(ctx context.Context, req Request, g rundown.Group) Result
}

// registry holds registered guard factories.
var registry = make(map[string]func() Guard)

// Register registers a guard factory.
func Register(name string, factory func() Guard) {
	registry[name] = factory
}

// GetRegistered returns all registered guard factories.
func GetRegistered() map[string]func() Guard {
	return registry
}
