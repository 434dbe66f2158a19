package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"
)

var ErrEmptyQuery = errors.New("knowledge: query is empty")

type Document struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Source    string    `json:"source,omitempty"`
	Embedding []float64 `json:"embedding,omitempty"`
}

// Hit is one search result with its cosine similarity to the query.
type Hit struct {
	Document Document
	Score    float64
}

// Store keeps documents in memory and ranks them by cosine similarity.
// The document set is small enough that a linear scan is fine.
type Store struct {
	embedder Embedder

	mu   sync.RWMutex
	docs []Document
}

func NewStore(embedder Embedder) *Store {
	return &Store{embedder: embedder}
}

// Add embeds any documents that arrive without a vector and appends them.
func (s *Store) Add(ctx context.Context, docs ...Document) error {
	var pending []int
	var texts []string
	for i, doc := range docs {
		if len(doc.Embedding) == 0 {
			pending = append(pending, i)
			texts = append(texts, doc.Text)
		}
	}
	if len(pending) > 0 {
		vectors, err := s.embedder.Embed(ctx, texts)
		if err != nil {
			return err
		}
		for j, i := range pending {
			docs[i].Embedding = vectors[j]
		}
	}

	s.mu.Lock()
	s.docs = append(s.docs, docs...)
	s.mu.Unlock()
	return nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Search embeds the query and returns the top k documents by similarity.
func (s *Store) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		k = 1
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	qv := vectors[0]

	s.mu.RLock()
	hits := make([]Hit, 0, len(s.docs))
	for _, doc := range s.docs {
		hits = append(hits, Hit{Document: doc, Score: cosine(qv, doc.Embedding)})
	}
	s.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// LoadFile replaces the store contents with a previously saved snapshot.
func (s *Store) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read knowledge file: %w", err)
	}
	var docs []Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("parse knowledge file: %w", err)
	}
	s.mu.Lock()
	s.docs = docs
	s.mu.Unlock()
	return nil
}

// SaveFile writes the store contents, embeddings included, as JSON.
func (s *Store) SaveFile(path string) error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.docs, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode knowledge file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write knowledge file: %w", err)
	}
	return nil
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
