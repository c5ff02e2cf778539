// Package pathcache holds, per destination, the candidate source routes a
// client or server has learned from flood responses, together with a use
// counter that tracks fragments currently in flight along each one.
package pathcache

import "github.com/danylo37/overlay-mesh/core/node"

// Path is one candidate route to a destination, together with how many
// fragments are currently in flight along it.
type Path struct {
	Hops     []node.ID
	UseCount int
}

func clonePath(hops []node.ID) []node.ID {
	cp := make([]node.ID, len(hops))
	copy(cp, hops)
	return cp
}

// Cache stores, per destination node, the set of candidate paths learned
// from discovery rounds.
type Cache struct {
	byDest map[node.ID][]*Path
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{byDest: make(map[node.ID][]*Path)}
}

// Install adds a freshly discovered path to dest with a use counter of
// zero. It does not deduplicate against existing paths; a discovery round
// is expected to Flush the destination first (per spec: "The cache is
// flushed whenever a new discovery round begins for that destination").
func (c *Cache) Install(dest node.ID, hops []node.ID) {
	c.byDest[dest] = append(c.byDest[dest], &Path{Hops: clonePath(hops)})
}

// Flush discards every candidate path known for dest.
func (c *Cache) Flush(dest node.ID) {
	delete(c.byDest, dest)
}

// FlushAll discards every candidate path to every destination, as done at
// the start of a fresh discovery round: the whole network may have changed
// shape, so nothing already cached can be trusted.
func (c *Cache) FlushAll() {
	c.byDest = make(map[node.ID][]*Path)
}

// Select returns the best candidate path to dest: the one with the
// smallest use counter, breaking ties by shortest length. Returns false if
// no path is known.
func (c *Cache) Select(dest node.ID) (*Path, bool) {
	paths := c.byDest[dest]
	if len(paths) == 0 {
		return nil, false
	}
	best := paths[0]
	for _, p := range paths[1:] {
		if p.UseCount < best.UseCount || (p.UseCount == best.UseCount && len(p.Hops) < len(best.Hops)) {
			best = p
		}
	}
	return best, true
}

// Use increments the use counter of the given path. Callers obtain the
// path from Select and must pass the same pointer back.
func (p *Path) Use() {
	p.UseCount++
}

// Release decrements the use counter of the given path, floored at zero.
// Called when a fragment sent along it is ACKed or abandoned.
func (p *Path) Release() {
	if p.UseCount > 0 {
		p.UseCount--
	}
}

// Has reports whether any candidate path to dest is known.
func (c *Cache) Has(dest node.ID) bool {
	return len(c.byDest[dest]) > 0
}

// Paths returns the candidate paths known for dest, for inspection/tests.
func (c *Cache) Paths(dest node.ID) []*Path {
	return c.byDest[dest]
}
