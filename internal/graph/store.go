// Package graph records typed directed edges between entities across
// collections, without owning or validating the entities themselves. All
// cross-references are soft: a (type, id) pair the graph never checks against
// any collection, so consumers treat resolved references as advisory.
package graph

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rkreels/spendguard/internal/storage"
)

// StorageKey is the persisted key-value key holding the edge set.
const StorageKey = "relationships"

// Edge is a typed directed link between two (entity type, id) pairs. An edge
// and its semantic inverse are distinct records; there is no implicit
// symmetry, and duplicates are permitted.
type Edge struct {
	ID               string            `json:"id"`
	FromEntity       string            `json:"fromEntity"`
	FromID           string            `json:"fromId"`
	ToEntity         string            `json:"toEntity"`
	ToID             string            `json:"toId"`
	RelationshipType string            `json:"relationshipType"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// Related is one resolved neighbor: the other endpoint of an edge touching
// the queried entity, with the direction seen from the queried side.
type Related struct {
	Entity           string            `json:"entity"`
	ID               string            `json:"id"`
	RelationshipType string            `json:"relationshipType"`
	Direction        string            `json:"direction"` // "outgoing" or "incoming"
	EdgeID           string            `json:"edgeId"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// Node is a visited entity in a traversal, recorded at first-seen depth.
type Node struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
	Depth  int    `json:"depth"`
}

// Traversal is the node/edge set reachable within maxDepth hops.
type Traversal struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Store is the append-and-delete edge set with undirected queries over
// directed storage.
type Store struct {
	store  storage.Provider // nil means session-only
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	edges  []Edge
	loaded bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock injects the clock used for edge timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a graph store. provider may be nil for a session-only store.
func New(provider storage.Provider, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{store: provider, logger: logger, now: time.Now, edges: []Edge{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) ensureLoadedLocked() {
	if s.loaded {
		return
	}
	s.loaded = true
	if s.store == nil {
		return
	}
	data, err := s.store.Read(StorageKey)
	if err != nil {
		return
	}
	var edges []Edge
	if err := json.Unmarshal(data, &edges); err != nil {
		s.logger.Warn("graph: corrupt stored value, starting empty", slog.String("error", err.Error()))
		return
	}
	if edges != nil {
		s.edges = edges
	}
}

func (s *Store) persistLocked() {
	if s.store == nil {
		return
	}
	data, err := json.Marshal(s.edges)
	if err != nil {
		s.logger.Warn("graph: marshal failed", slog.String("error", err.Error()))
		return
	}
	if err := s.store.Write(StorageKey, data); err != nil {
		s.logger.Warn("graph: persist failed", slog.String("error", err.Error()))
	}
}

// AddRelationship appends a new edge with a fresh id and current timestamps.
// No uniqueness constraint and no existence check on either endpoint.
func (s *Store) AddRelationship(fromType, fromID, toType, toID, relType string, metadata map[string]string) Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked()

	now := s.now()
	e := Edge{
		ID:               uuid.NewString(),
		FromEntity:       fromType,
		FromID:           fromID,
		ToEntity:         toType,
		ToID:             toID,
		RelationshipType: relType,
		Metadata:         metadata,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.edges = append(s.edges, e)
	s.persistLocked()
	return e
}

// RemoveRelationship deletes an edge by id. No-op if absent.
func (s *Store) RemoveRelationship(edgeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked()

	for i, e := range s.edges {
		if e.ID == edgeID {
			s.edges = append(s.edges[:i], s.edges[i+1:]...)
			s.persistLocked()
			return
		}
	}
}

// RelationshipsFor returns every edge where (entity, id) appears as either
// endpoint: an undirected query over directed storage.
func (s *Store) RelationshipsFor(entity, id string) []Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked()

	var out []Edge
	for _, e := range s.edges {
		if e.touches(entity, id) {
			out = append(out, e)
		}
	}
	return out
}

// RelatedEntities resolves each touching edge to its other endpoint, with the
// direction seen from the queried entity.
func (s *Store) RelatedEntities(entity, id string) []Related {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked()
	return s.relatedLocked(entity, id)
}

func (s *Store) relatedLocked(entity, id string) []Related {
	var out []Related
	for _, e := range s.edges {
		switch {
		case e.FromEntity == entity && e.FromID == id:
			out = append(out, Related{
				Entity: e.ToEntity, ID: e.ToID,
				RelationshipType: e.RelationshipType,
				Direction:        "outgoing",
				EdgeID:           e.ID,
				Metadata:         e.Metadata,
			})
		case e.ToEntity == entity && e.ToID == id:
			out = append(out, Related{
				Entity: e.FromEntity, ID: e.FromID,
				RelationshipType: e.RelationshipType,
				Direction:        "incoming",
				EdgeID:           e.ID,
				Metadata:         e.Metadata,
			})
		}
	}
	return out
}

// Traverse walks the neighborhood of (entity, id) breadth-first up to
// maxDepth hops. Each (type, id) pair is visited at most once, keyed
// "type:id", so traversal terminates on cyclic edge sets; breadth-first order
// means the recorded depth is the shallowest at which the node is reachable.
func (s *Store) Traverse(entity, id string, maxDepth int) Traversal {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked()

	result := Traversal{Nodes: []Node{}, Edges: []Edge{}}
	if maxDepth < 0 {
		return result
	}

	visited := map[string]struct{}{key(entity, id): {}}
	seenEdges := map[string]struct{}{}
	frontier := []Node{{Entity: entity, ID: id, Depth: 0}}
	result.Nodes = append(result.Nodes, frontier[0])

	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		if cur.Depth >= maxDepth {
			continue
		}
		for _, e := range s.edges {
			if !e.touches(cur.Entity, cur.ID) {
				continue
			}
			if _, dup := seenEdges[e.ID]; !dup {
				seenEdges[e.ID] = struct{}{}
				result.Edges = append(result.Edges, e)
			}
			other := e.other(cur.Entity, cur.ID)
			k := key(other.Entity, other.ID)
			if _, ok := visited[k]; ok {
				continue
			}
			visited[k] = struct{}{}
			next := Node{Entity: other.Entity, ID: other.ID, Depth: cur.Depth + 1}
			result.Nodes = append(result.Nodes, next)
			frontier = append(frontier, next)
		}
	}
	return result
}

// Count returns the number of stored edges.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoadedLocked()
	return len(s.edges)
}

// Reload re-reads the edge set from the persisted store.
func (s *Store) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = false
	s.edges = []Edge{}
	s.ensureLoadedLocked()
}

func (e Edge) touches(entity, id string) bool {
	return (e.FromEntity == entity && e.FromID == id) || (e.ToEntity == entity && e.ToID == id)
}

// other returns the endpoint opposite to (entity, id). For self-loops both
// sides are the queried entity and either endpoint will do.
func (e Edge) other(entity, id string) Node {
	if e.FromEntity == entity && e.FromID == id {
		return Node{Entity: e.ToEntity, ID: e.ToID}
	}
	return Node{Entity: e.FromEntity, ID: e.FromID}
}

func key(entity, id string) string { return entity + ":" + id }
