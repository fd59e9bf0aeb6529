package guard

import (
	"context"

	"github.com/osa030/cuebox/internal/domain/rundown"
)

// LockedGroupGuard rejects commands on a locked group.
type LockedGroupGuard struct{}

func (g *LockedGroupGuard) Name() string {
	return "locked_group_guard"
}

func (g *LockedGroupGuard) Description() string {
	return "Rejects commands on groups that are locked"
}

func (g *LockedGroupGuard) ReturnCodes() []string {
	return []string{"group_locked"}
}

func (g *LockedGroupGuard) ValidateConfig(settings map[string]any) error {
	return nil
}

func (g *LockedGroupGuard) AppliesTo(source Source) bool {
	// Scheduled starts still run on a locked group
	return source != SourceSchedule
}

func (g *LockedGroupGuard) Check(ctx context.Context, req Request, group rundown.Group) Result {
	if group.Locked {
		return Reject("group_locked")
	}
	return Accept()
}

// LockedPartGuard rejects commands targeting a locked part.
type LockedPartGuard struct{}

func (g *LockedPartGuard) Name() string {
	return "locked_part_guard"
}

func (g *LockedPartGuard) Description() string {
	return "Rejects commands targeting parts that are locked"
}

func (g *LockedPartGuard) ReturnCodes() []string {
	return []string{"part_locked"}
}

func (g *LockedPartGuard) ValidateConfig(settings map[string]any) error {
	return nil
}

func (g *LockedPartGuard) AppliesTo(source Source) bool {
	return source != SourceSchedule
}

func (g *LockedPartGuard) Check(ctx context.Context, req Request, group rundown.Group) Result {
	if req.PartID == "" {
		return Accept()
	}
	part, err := group.Part(req.PartID)
	if err != nil {
		// Unknown parts are reported by the action layer
		return Accept()
	}
	if part.Locked {
		return Reject("part_locked")
	}
	return Accept()
}

func init() {
	Register("locked_group_guard", func() Guard {
		return &LockedGroupGuard{}
	})
	Register("locked_part_guard", func() Guard {
		return &LockedPartGuard{}
	})
}
