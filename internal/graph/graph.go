// Package graph maintains the per-entity version DAG of one vault. Versions
// are kept in an arena keyed by version identifier with explicit parent
// edges and a derived child index; tips and lineages are computed by
// traversal, never by back-pointers.
//
// More than one tip for an entity is a fork: concurrent edits that must be
// surfaced, not silently dropped. A deterministic tie-break selects the
// current tip for read purposes while every tip and its full lineage is
// retained.
package graph

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vaultmesh/vaultmesh/internal/logger"
	"github.com/vaultmesh/vaultmesh/models"
)

// Record is one node of the arena: a decrypted version, the identity of the
// item that carried it (the version's own identity), and the origin node
// used as the total-order fallback in conflict resolution.
type Record struct {
	// VersionID is the ID of the carrying item.
	VersionID string

	// Origin is the node that authored the carrying item.
	Origin string

	// Version is the decrypted content.
	Version models.Version
}

// Status reports the outcome of an insert.
type Status int

const (
	// Applied means the version is now part of its entity's graph.
	Applied Status = iota

	// Duplicate means the version was already present; the insert was an
	// idempotent no-op.
	Duplicate

	// Deferred means the parent has not arrived yet and the version sits
	// in the orphan buffer.
	Deferred
)

// Graph is the per-vault version store. Safe for concurrent use; the
// engine serializes mutation per vault regardless.
type Graph struct {
	mu  sync.RWMutex
	log *logger.Logger

	// arena indexes every applied version by its version (item) ID.
	arena map[string]Record

	// children derives child edges from parent pointers.
	children map[string][]string

	// entities maps entity ID to its version IDs, insertion-ordered.
	entities map[string][]string

	// orphans buffers out-of-causal-order arrivals keyed by the missing
	// parent ID. Bounded by orphanCap.
	orphans   map[string][]Record
	orphanCnt int
	orphanCap int
}

// New constructs an empty Graph whose orphan buffer holds at most cap
// deferred versions.
func New(orphanCap int, log *logger.Logger) *Graph {
	return &Graph{
		log:       log,
		arena:     make(map[string]Record),
		children:  make(map[string][]string),
		entities:  make(map[string][]string),
		orphans:   make(map[string][]Record),
		orphanCap: orphanCap,
	}
}

// Insert folds a version into its entity's graph. Re-inserting a known
// version is an idempotent no-op. A version whose parent is missing is
// buffered and adopted when the parent arrives; the returned error then
// wraps [ErrOrphanVersion] so callers can distinguish deferral from
// acceptance.
func (g *Graph) Insert(rec Record) (Status, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.insertLocked(rec)
}

func (g *Graph) insertLocked(rec Record) (Status, error) {
	switch {
	case rec.VersionID == "":
		return 0, fmt.Errorf("%w: empty version id", ErrCorruptVersion)
	case rec.Version.ID == "":
		return 0, fmt.Errorf("%w: empty entity id", ErrCorruptVersion)
	case rec.Version.Parent == rec.VersionID:
		return 0, fmt.Errorf("%w: version %s is its own parent", ErrCorruptVersion, rec.VersionID)
	}

	if _, ok := g.arena[rec.VersionID]; ok {
		return Duplicate, nil
	}

	parent := rec.Version.Parent
	if parent != "" {
		if _, ok := g.arena[parent]; !ok {
			return g.deferLocked(rec)
		}
	}

	g.arena[rec.VersionID] = rec
	g.entities[rec.Version.ID] = append(g.entities[rec.Version.ID], rec.VersionID)
	if parent != "" {
		g.children[parent] = append(g.children[parent], rec.VersionID)
	}

	// Adopt any orphans that were waiting for this version.
	waiting := g.orphans[rec.VersionID]
	delete(g.orphans, rec.VersionID)
	g.orphanCnt -= len(waiting)
	for _, orphan := range waiting {
		if _, err := g.insertLocked(orphan); err != nil {
			g.log.Warn().
				Str("version", orphan.VersionID).
				Err(err).
				Msg("buffered version failed on adoption")
		}
	}

	return Applied, nil
}

// deferLocked parks an out-of-causal-order version in the bounded buffer.
func (g *Graph) deferLocked(rec Record) (Status, error) {
	if g.orphanCnt >= g.orphanCap {
		return 0, fmt.Errorf("%w: %d versions buffered", ErrOrphanOverflow, g.orphanCnt)
	}

	g.orphans[rec.Version.Parent] = append(g.orphans[rec.Version.Parent], rec)
	g.orphanCnt++

	g.log.Debug().
		Str("version", rec.VersionID).
		Str("parent", rec.Version.Parent).
		Int("buffered", g.orphanCnt).
		Msg("version deferred until parent arrives")

	return Deferred, fmt.Errorf("%w: %s waits for %s", ErrOrphanVersion, rec.VersionID, rec.Version.Parent)
}

// Tips returns the childless versions of an entity, ordered by version ID
// for determinism. An empty result means the entity is unknown.
func (g *Graph) Tips(entity string) []Record {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var tips []Record
	for _, id := range g.entities[entity] {
		if len(g.children[id]) == 0 {
			tips = append(tips, g.arena[id])
		}
	}

	sort.Slice(tips, func(i, j int) bool { return tips[i].VersionID < tips[j].VersionID })
	return tips
}

// Forked reports whether an entity currently has divergent concurrent
// edits: more than one tip. This is a reportable state, not an error.
func (g *Graph) Forked(entity string) bool {
	return len(g.Tips(entity)) > 1
}

// Current selects the tip presented as the entity's live state: the tip
// with the latest creation timestamp, falling back to the greater origin
// node identity as an arbitrary but total order. All other tips remain
// retained with their lineage for conflict presentation.
func (g *Graph) Current(entity string) (Record, bool) {
	tips := g.Tips(entity)
	if len(tips) == 0 {
		return Record{}, false
	}

	current := tips[0]
	for _, tip := range tips[1:] {
		if newer(tip, current) {
			current = tip
		}
	}

	return current, true
}

// newer orders two records by (created_at, origin node).
func newer(a, b Record) bool {
	if a.Version.CreatedAt != b.Version.CreatedAt {
		return a.Version.CreatedAt > b.Version.CreatedAt
	}
	return a.Origin > b.Origin
}

// Lineage walks from the given version back to the entity's root and
// returns the path, root first. Unknown versions yield nil.
func (g *Graph) Lineage(versionID string) []Record {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var path []Record
	for id := versionID; id != ""; {
		rec, ok := g.arena[id]
		if !ok {
			return nil
		}
		path = append(path, rec)
		id = rec.Version.Parent
	}

	// Reverse: the walk collected tip-to-root.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	return path
}

// Entities returns every known entity ID, sorted.
func (g *Graph) Entities() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]string, 0, len(g.entities))
	for entity := range g.entities {
		out = append(out, entity)
	}
	sort.Strings(out)

	return out
}

// Cap returns the orphan buffer capacity the graph was built with.
func (g *Graph) Cap() int {
	return g.orphanCap
}

// Orphans reports how many versions are parked in the orphan buffer.
func (g *Graph) Orphans() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.orphanCnt
}
