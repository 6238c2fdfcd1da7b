package knowledge

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/yhonda-ohishi/grpcweb-bridge/codec"
)

// Store is an in-memory Server. Relevance is the share of query terms
// found in a chunk; chunks scoring zero are never returned.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]Chunk
}

var _ Server = (*Store)(nil)

func NewStore() *Store {
	return &Store{collections: make(map[string]map[string]Chunk)}
}

func (s *Store) Upsert(ctx context.Context, req UpsertRequest) (UpsertResponse, error) {
	if req.Collection == "" {
		return UpsertResponse{}, codec.NewError(codec.StatusInvalidArgument, "collection is required")
	}
	if strings.TrimSpace(req.Chunk.Text) == "" {
		return UpsertResponse{}, codec.NewError(codec.StatusInvalidArgument, "chunk text is required")
	}

	chunk := req.Chunk
	if chunk.ID == "" {
		chunk.ID = uuid.NewString()
	}
	chunk.Score = 0

	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.collections[req.Collection]
	if !ok {
		coll = make(map[string]Chunk)
		s.collections[req.Collection] = coll
	}
	_, exists := coll[chunk.ID]
	coll[chunk.ID] = chunk

	return UpsertResponse{ID: chunk.ID, Created: !exists}, nil
}

func (s *Store) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	terms := strings.FieldsFunc(strings.ToLower(req.Query), isSeparator)
	if len(terms) == 0 {
		return SearchResponse{}, codec.NewError(codec.StatusInvalidArgument, "query is required")
	}
	k := req.TopK
	if k <= 0 {
		k = DefaultTopK
	}

	s.mu.RLock()
	coll, ok := s.collections[req.Collection]
	if !ok {
		s.mu.RUnlock()
		return SearchResponse{}, codec.NewError(codec.StatusNotFound, "collection %s not found", req.Collection)
	}
	hits := make([]Chunk, 0, len(coll))
	for _, chunk := range coll {
		if score := relevance(terms, chunk.Text); score > 0 {
			chunk.Score = score
			hits = append(hits, chunk)
		}
	}
	s.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return SearchResponse{Chunks: hits}, nil
}

func (s *Store) Delete(ctx context.Context, req DeleteRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll := s.collections[req.Collection]
	if _, ok := coll[req.ID]; !ok {
		return codec.NewError(codec.StatusNotFound, "chunk %s not found in %s", req.ID, req.Collection)
	}
	delete(coll, req.ID)
	return nil
}

func relevance(terms []string, text string) float64 {
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), isSeparator) {
		words[w] = true
	}
	found := 0
	for _, term := range terms {
		if words[term] {
			found++
		}
	}
	return float64(found) / float64(len(terms))
}

func isSeparator(r rune) bool {
	return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 0x7f)
}
