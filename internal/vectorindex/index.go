// Package vectorindex stores lecture embeddings and answers nearest-neighbour
// queries over them.
package vectorindex

import "context"

// Match is a single query hit. Score is cosine similarity, higher is closer.
type Match struct {
	ID       string
	Score    float32
	Metadata map[string]string
}

// Index is a vector store keyed by document id.
type Index interface {
	// Upsert inserts or overwrites the vector and metadata stored under id.
	Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error
	// Query returns at most topK matches ordered by descending similarity. An
	// empty index yields an empty slice.
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)
	Count(ctx context.Context) (int, error)
}

const (
	metaText  = "text"
	metaTitle = "title"
)
