// Package sequencer tracks per-origin-node sequence numbers for one vault's
// replicated item stream. It answers three questions: is this item a
// duplicate, in what order may a batch be applied, and what sequence number
// does the local node stamp on its next authored item.
//
// Gaps in a node's stream are tolerated — they mean "not yet received" and
// may be filled late. What is forbidden is resequencing: an exact
// (node, seqnr) pair is committed at most once.
package sequencer

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/vaultmesh/vaultmesh/models"
)

// ErrReplayedSequence is returned when an already-committed (node, seqnr)
// pair is committed again.
var ErrReplayedSequence = errors.New("replayed sequence number")

// Sequencer is the per-vault sequence fold. Safe for concurrent use.
type Sequencer struct {
	mu sync.RWMutex

	// seen records every committed sequence number per node. Kept as a
	// set rather than a watermark because gaps may fill in any order.
	seen map[string]map[uint64]struct{}

	// highest caches the maximum committed sequence number per node.
	highest map[string]uint64
}

// New constructs an empty Sequencer.
func New() *Sequencer {
	return &Sequencer{
		seen:    make(map[string]map[uint64]struct{}),
		highest: make(map[string]uint64),
	}
}

// Seen reports whether the exact (node, seqnr) pair has been committed.
func (s *Sequencer) Seen(node string, seqnr uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.seen[node][seqnr]
	return ok
}

// Commit records an accepted sequence number. Committing the same pair
// twice is a replay and fails; callers treat the first acceptance as final.
func (s *Sequencer) Commit(node string, seqnr uint64) error {
	if seqnr == 0 {
		return fmt.Errorf("sequence numbers start at 1, got 0 from %s", node)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.seen[node]
	if !ok {
		set = make(map[uint64]struct{})
		s.seen[node] = set
	}

	if _, dup := set[seqnr]; dup {
		return fmt.Errorf("%w: %s/%d", ErrReplayedSequence, node, seqnr)
	}

	set[seqnr] = struct{}{}
	if seqnr > s.highest[node] {
		s.highest[node] = seqnr
	}

	return nil
}

// Highest returns the highest committed sequence number of a node, zero if
// none.
func (s *Sequencer) Highest(node string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.highest[node]
}

// Next returns the sequence number the local node stamps on its next
// authored item: one past the highest it has committed.
func (s *Sequencer) Next(node string) uint64 {
	return s.Highest(node) + 1
}

// Order returns the admissible apply order for a batch: stable-sorted by
// origin node, then ascending sequence number. Ordering across different
// origins carries no meaning; causal order between versions is recovered by
// parent pointers, not sequence numbers.
func (s *Sequencer) Order(items []models.Item) []models.Item {
	ordered := make([]models.Item, len(items))
	copy(ordered, items)

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Origin.Node != ordered[j].Origin.Node {
			return ordered[i].Origin.Node < ordered[j].Origin.Node
		}
		return ordered[i].Origin.SeqNr < ordered[j].Origin.SeqNr
	})

	return ordered
}
