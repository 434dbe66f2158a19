package knowledge

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

// fixedEmbedder maps known texts to fixed vectors.
type fixedEmbedder struct {
	vectors map[string][]float64
}

func (e *fixedEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		v, ok := e.vectors[text]
		if !ok {
			return nil, errors.New("unexpected text: " + text)
		}
		out[i] = v
	}
	return out, nil
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	embedder := &fixedEmbedder{vectors: map[string][]float64{
		"deductibles explained": {1, 0, 0},
		"hsa contribution caps": {0, 1, 0},
		"what is a deductible":  {0.9, 0.1, 0},
	}}
	store := NewStore(embedder)
	err := store.Add(context.Background(),
		Document{ID: "d1", Text: "deductibles explained"},
		Document{ID: "d2", Text: "hsa contribution caps"},
	)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	return store
}

func TestSearchRanksByCosineSimilarity(t *testing.T) {
	store := newTestStore(t)

	hits, err := store.Search(context.Background(), "what is a deductible", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	if hits[0].Document.ID != "d1" {
		t.Fatalf("top hit = %q, want d1", hits[0].Document.ID)
	}
	if hits[0].Score <= 0 {
		t.Fatalf("score = %v", hits[0].Score)
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Search(context.Background(), "", 1); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("err = %v, want ErrEmptyQuery", err)
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	store := newTestStore(t)
	path := filepath.Join(t.TempDir(), "kb.json")

	if err := store.SaveFile(path); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	reloaded := NewStore(&fixedEmbedder{vectors: map[string][]float64{
		"what is a deductible": {0.9, 0.1, 0},
	}})
	if err := reloaded.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if reloaded.Len() != 2 {
		t.Fatalf("reloaded %d documents, want 2", reloaded.Len())
	}

	// Saved embeddings survive the round trip, so search works without
	// re-embedding the documents.
	hits, err := reloaded.Search(context.Background(), "what is a deductible", 1)
	if err != nil {
		t.Fatalf("Search after reload: %v", err)
	}
	if hits[0].Document.ID != "d1" {
		t.Fatalf("top hit = %q", hits[0].Document.ID)
	}
}

func TestCosine(t *testing.T) {
	if got := cosine([]float64{1, 0}, []float64{1, 0}); got < 0.999 {
		t.Fatalf("identical vectors: %v", got)
	}
	if got := cosine([]float64{1, 0}, []float64{0, 1}); got != 0 {
		t.Fatalf("orthogonal vectors: %v", got)
	}
	if got := cosine([]float64{1, 0}, []float64{1}); got != 0 {
		t.Fatalf("length mismatch should score zero, got %v", got)
	}
}
