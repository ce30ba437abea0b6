// Package similarity holds the labeled outcome corpus the predictor queries.
package similarity

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"
)

// Label is the outcome attached to a corpus record.
type Label string

const (
	LabelChurned  Label = "churned"
	LabelRetained Label = "retained"
)

// Valid reports whether l is a known label.
func (l Label) Valid() bool {
	return l == LabelChurned || l == LabelRetained
}

// ErrDuplicate is returned when a record id was already written. Records are
// write-once.
var ErrDuplicate = errors.New("similarity record already exists")

// Record is one labeled point of the corpus.
type Record struct {
	ID        string            `json:"id"`
	Vector    []float64         `json:"vector"`
	Label     Label             `json:"label"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Neighbor is a query hit.
type Neighbor struct {
	ID    string  `json:"id"`
	Label Label   `json:"label"`
	Score float64 `json:"score"`
}

// Store answers nearest-neighbor queries over labeled records.
type Store interface {
	Query(ctx context.Context, vector []float64, k int) ([]Neighbor, error)
	Upsert(ctx context.Context, rec Record) error
	Count(ctx context.Context) (int, error)
}

// CosineSimilarity returns a value in [-1, 1], or 0 when the vectors differ in
// length or either has zero magnitude.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// BruteForceSearch scores every candidate and returns the topK best, ties
// broken by id so results are stable.
func BruteForceSearch(query []float64, candidates []Record, topK int) []Neighbor {
	if len(query) == 0 || len(candidates) == 0 || topK <= 0 {
		return nil
	}

	results := make([]Neighbor, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, Neighbor{
			ID:    c.ID,
			Label: c.Label,
			Score: CosineSimilarity(query, c.Vector),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].ID < results[j].ID
		}
		return results[i].Score > results[j].Score
	})

	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK]
}
