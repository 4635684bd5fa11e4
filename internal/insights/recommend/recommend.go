// Package recommend suggests items to an entity from the interactions of
// entities with similar tastes (user-based collaborative filtering).
package recommend

import (
	"sort"

	"github.com/andresuchdata/autopo-insights/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/insights/stats"
)

const DefaultLimit = 5

// Recommend returns up to n items the target has not interacted with, ranked
// by similarity-weighted interest from every other entity. Similarity is the
// cosine over the items both entities have rated; neighbours with no overlap
// or non-positive similarity contribute nothing, and an item whose score
// stays at zero (only zero-weight interactions) is not returned. Equal scores
// are ordered by item id. An unknown target yields an empty list.
func Recommend(matrix domain.RatingMatrix, target string, n int) ([]domain.Recommendation, error) {
	if n <= 0 {
		return nil, domain.NewInvalidInput("recommend", "n", "must be positive, got %d", n)
	}

	recs := []domain.Recommendation{}
	own, ok := matrix[target]
	if !ok || len(own) == 0 {
		return recs, nil
	}

	scores := make(map[string]float64)
	for _, other := range neighbours(matrix, target) {
		row := matrix[other]
		sim, overlap := overlapSimilarity(own, row)
		if overlap == 0 || sim <= 0 {
			continue
		}
		for item, weight := range row {
			if _, seen := own[item]; seen {
				continue
			}
			scores[item] += sim * weight
		}
	}

	for item, score := range scores {
		if score > 0 && stats.IsFinite(score) {
			recs = append(recs, domain.Recommendation{ItemID: item, Score: score})
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return recs[i].ItemID < recs[j].ItemID
	})
	if len(recs) > n {
		recs = recs[:n]
	}
	return recs, nil
}

// neighbours lists every entity but the target in id order so floating-point
// accumulation is reproducible.
func neighbours(matrix domain.RatingMatrix, target string) []string {
	ids := make([]string, 0, len(matrix))
	for id := range matrix {
		if id != target {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// overlapSimilarity is the cosine of a and b restricted to shared keys.
func overlapSimilarity(a, b map[string]float64) (float64, int) {
	shared := make([]string, 0)
	for item := range a {
		if _, ok := b[item]; ok {
			shared = append(shared, item)
		}
	}
	if len(shared) == 0 {
		return 0, 0
	}
	sort.Strings(shared)

	va := make([]float64, len(shared))
	vb := make([]float64, len(shared))
	for i, item := range shared {
		va[i] = a[item]
		vb[i] = b[item]
	}
	return stats.CosineSimilarity(va, vb), len(shared)
}

// BuildMatrix sums interaction quantities per entity and item. Interactions
// with an empty entity or item id are ignored.
func BuildMatrix(interactions []domain.Interaction) domain.RatingMatrix {
	matrix := make(domain.RatingMatrix)
	for _, in := range interactions {
		if in.EntityID == "" || in.ItemID == "" {
			continue
		}
		row, ok := matrix[in.EntityID]
		if !ok {
			row = make(map[string]float64)
			matrix[in.EntityID] = row
		}
		row[in.ItemID] += in.Quantity
	}
	return matrix
}

// Entities returns the matrix row keys in sorted order.
func Entities(matrix domain.RatingMatrix) []string {
	ids := make([]string, 0, len(matrix))
	for id := range matrix {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
