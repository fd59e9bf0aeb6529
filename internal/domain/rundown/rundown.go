package rundown

import "github.com/cockroachdb/errors"

// Rundown is an arena of groups addressed by ID.
// A Rundown value is never modified in place; WithGroup returns a new arena.
type Rundown struct {
	ID     string
	Name   string
	groups map[string]Group
	order  []string
}

// New creates a rundown from the given groups, keeping their order.
func New(id, name string, groups ...Group) (Rundown, error) {
	r := Rundown{
		ID:     id,
		Name:   name,
		groups: make(map[string]Group, len(groups)),
		order:  make([]string, 0, len(groups)),
	}
	for _, g := range groups {
		if _, exists := r.groups[g.ID]; exists {
			return Rundown{}, errors.Newf("duplicate group id: %s", g.ID)
		}
		seen := make(map[string]bool, len(g.Parts))
		for _, p := range g.Parts {
			if seen[p.ID] {
				return Rundown{}, errors.Newf("group %s: duplicate part id: %s", g.ID, p.ID)
			}
			seen[p.ID] = true
		}
		r.groups[g.ID] = g.Clone()
		r.order = append(r.order, g.ID)
	}
	return r, nil
}

// Group returns a copy of the group with the given ID.
func (r Rundown) Group(groupID string) (Group, error) {
	g, ok := r.groups[groupID]
	if !ok {
		return Group{}, errors.Wrapf(ErrGroupNotFound, "group %s", groupID)
	}
	return g.Clone(), nil
}

// Groups returns copies of all groups in rundown order.
func (r Rundown) Groups() []Group {
	groups := make([]Group, 0, len(r.order))
	for _, id := range r.order {
		groups = append(groups, r.groups[id].Clone())
	}
	return groups
}

// GroupIDs returns the group IDs in rundown order.
func (r Rundown) GroupIDs() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Len returns the number of groups.
func (r Rundown) Len() int {
	return len(r.order)
}

// WithGroup returns a new rundown where the group with the same ID is replaced.
// Untouched groups are shared with the receiver.
func (r Rundown) WithGroup(g Group) (Rundown, error) {
	if _, ok := r.groups[g.ID]; !ok {
		return r, errors.Wrapf(ErrGroupNotFound, "group %s", g.ID)
	}
	next := Rundown{
		ID:     r.ID,
		Name:   r.Name,
		groups: make(map[string]Group, len(r.groups)),
		order:  r.order,
	}
	for id, existing := range r.groups {
		next.groups[id] = existing
	}
	next.groups[g.ID] = g.Clone()
	return next, nil
}
