package guard

import (
	"context"

	"github.com/osa030/cuebox/internal/domain/rundown"
)

// Chain executes guards in sequence.
type Chain struct {
	guards []Guard
}

// NewChain creates a new guard chain.
func NewChain(guards ...Guard) *Chain {
	c := &Chain{
		guards: make([]Guard, 0, len(guards)),
	}
	for _, g := range guards {
		c.Add(g)
	}
	return c
}

// Add adds a guard to the chain.
func (c *Chain) Add(g Guard) {
	c.guards = append(c.guards, g)
}

// Execute runs all guards in sequence.
// Returns immediately if any guard rejects the request.
func (c *Chain) Execute(ctx context.Context, req Request, g rundown.Group) Result {
	for _, gd := range c.guards {
		if !gd.AppliesTo(req.Source) {
			continue
		}

		result := gd.Check(ctx, req, g)
		if !result.Accepted {
			return result
		}
	}
	return Accept()
}

// Guards returns all guards in the chain.
func (c *Chain) Guards() []Guard {
	return c.guards
}
