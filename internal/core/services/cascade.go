package services

import (
	"context"
	"errors"

	"dms-object-service/internal/core/domain"
	"dms-object-service/internal/core/ports/output"
)

// Reference markers for edges that leave the arena.
const (
	noRef          = -1
	outsideLive    = -2
	outsideTrashed = -3
)

// cascadeArena holds every entity a deletion could reach. Edges are stored as
// indexes into nodes so the graph never owns cyclic pointers.
type cascadeArena struct {
	nodes      []*domain.Entity
	index      map[string]int
	owner      []int
	containers [][]int
	requested  []bool
}

func (a *cascadeArena) add(e *domain.Entity, requested bool) bool {
	if i, ok := a.index[e.ID]; ok {
		a.requested[i] = a.requested[i] || requested
		return false
	}
	a.index[e.ID] = len(a.nodes)
	a.nodes = append(a.nodes, e)
	a.requested = append(a.requested, requested)
	return true
}

// resolveCascade returns the requested entities plus every live dependent that
// has to go with them, roots first. A dependent joins when its owner joins, or
// when every one of its containers is deleted or already trashed.
func resolveCascade(ctx context.Context, tx ports.StoreTx, ids []string) ([]*domain.Entity, error) {
	a := &cascadeArena{index: make(map[string]int)}

	var frontier []string
	for _, id := range ids {
		e, err := loadLiveForUpdate(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if a.add(e, true) {
			frontier = append(frontier, e.ID)
		}
	}

	for len(frontier) > 0 {
		dependents, err := tx.ListDependents(ctx, frontier)
		if err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for _, e := range dependents {
			if a.add(e, false) {
				frontier = append(frontier, e.ID)
			}
		}
	}

	if err := a.link(ctx, tx); err != nil {
		return nil, err
	}

	in := a.fixedPoint()
	members := make([]*domain.Entity, 0, len(a.nodes))
	for i, e := range a.nodes {
		if in[i] {
			members = append(members, e)
		}
	}
	return members, nil
}

// link resolves owner and container references to arena indexes, looking up
// containers outside the arena to learn whether they are still live.
func (a *cascadeArena) link(ctx context.Context, r ports.StoreReader) error {
	a.owner = make([]int, len(a.nodes))
	a.containers = make([][]int, len(a.nodes))
	outside := make(map[string]int)

	for i, e := range a.nodes {
		a.owner[i] = noRef
		if e.OwnerID != nil {
			if j, ok := a.index[*e.OwnerID]; ok {
				a.owner[i] = j
			}
		}
		for _, cid := range e.ContainerIDs {
			if j, ok := a.index[cid]; ok {
				a.containers[i] = append(a.containers[i], j)
				continue
			}
			ref, ok := outside[cid]
			if !ok {
				c, err := r.GetEntity(ctx, cid)
				switch {
				case errors.Is(err, domain.ErrObjectNotFound):
					ref = outsideTrashed
				case err != nil:
					return err
				case c.Trashed():
					ref = outsideTrashed
				default:
					ref = outsideLive
				}
				outside[cid] = ref
			}
			a.containers[i] = append(a.containers[i], ref)
		}
	}
	return nil
}

func (a *cascadeArena) fixedPoint() []bool {
	in := append([]bool(nil), a.requested...)
	for changed := true; changed; {
		changed = false
		for i := range a.nodes {
			if in[i] || !a.joins(i, in) {
				continue
			}
			in[i] = true
			changed = true
		}
	}
	return in
}

func (a *cascadeArena) joins(i int, in []bool) bool {
	if o := a.owner[i]; o >= 0 && in[o] {
		return true
	}
	if len(a.containers[i]) == 0 {
		return false
	}
	anyIn := false
	for _, c := range a.containers[i] {
		switch {
		case c == outsideTrashed:
		case c >= 0 && in[c]:
			anyIn = true
		default:
			return false
		}
	}
	return anyIn
}
