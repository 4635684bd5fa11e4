package recommend

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/autopo-insights/backend-go/internal/domain"
)

func sampleMatrix() domain.RatingMatrix {
	return domain.RatingMatrix{
		"alice": {"apple": 5, "bread": 3},
		"bob":   {"apple": 4, "bread": 2, "cheese": 5},
		"carol": {"apple": 1, "dates": 4},
		"dave":  {"eggs": 3},
		"eve":   {"apple": -2, "figs": 5},
	}
}

func TestRecommendRanksBySimilarityWeightedScore(t *testing.T) {
	recs, err := Recommend(sampleMatrix(), "alice", 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	// bob: cos over {apple, bread} = 26 / (sqrt(34)*sqrt(20))
	bobSim := 26 / (math.Sqrt(34) * math.Sqrt(20))
	assert.Equal(t, "cheese", recs[0].ItemID)
	assert.InDelta(t, bobSim*5, recs[0].Score, 1e-9)

	// carol overlaps only on apple, so cos = 1
	assert.Equal(t, "dates", recs[1].ItemID)
	assert.InDelta(t, 4.0, recs[1].Score, 1e-9)
}

func TestRecommendLimit(t *testing.T) {
	recs, err := Recommend(sampleMatrix(), "alice", 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "cheese", recs[0].ItemID)
}

func TestRecommendSkipsNegativeAndNonOverlappingNeighbours(t *testing.T) {
	recs, err := Recommend(sampleMatrix(), "alice", 10)
	require.NoError(t, err)
	for _, r := range recs {
		assert.NotEqual(t, "eggs", r.ItemID, "dave shares nothing with alice")
		assert.NotEqual(t, "figs", r.ItemID, "eve is negatively correlated")
	}
}

func TestRecommendNoOverlapOrUnknownTarget(t *testing.T) {
	for _, target := range []string{"dave", "zoe"} {
		recs, err := Recommend(sampleMatrix(), target, 5)
		require.NoError(t, err)
		assert.NotNil(t, recs)
		assert.Empty(t, recs, target)
	}
}

func TestRecommendNeverReturnsOwnItems(t *testing.T) {
	m := sampleMatrix()
	for target, own := range m {
		for n := 1; n <= 6; n++ {
			recs, err := Recommend(m, target, n)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(recs), n)
			for _, r := range recs {
				_, seen := own[r.ItemID]
				assert.False(t, seen, "%s was recommended its own item %s", target, r.ItemID)
			}
		}
	}
}

func TestRecommendDropsZeroScoreItems(t *testing.T) {
	matrix := domain.RatingMatrix{
		"alice": {"apple": 2},
		"bob":   {"apple": 3, "bread": 0, "cheese": 1},
	}

	recs, err := Recommend(matrix, "alice", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "cheese", recs[0].ItemID)
	assert.InDelta(t, 1.0, recs[0].Score, 1e-9)
}

func TestRecommendTiesOrderedByItemID(t *testing.T) {
	m := domain.RatingMatrix{
		"a": {"x": 1},
		"b": {"x": 1, "pear": 2, "kiwi": 2},
	}
	recs, err := Recommend(m, "a", 5)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "kiwi", recs[0].ItemID)
	assert.Equal(t, "pear", recs[1].ItemID)
}

func TestRecommendInvalidLimit(t *testing.T) {
	for _, n := range []int{0, -1} {
		_, err := Recommend(sampleMatrix(), "alice", n)
		assert.True(t, domain.IsInvalidInput(err))
	}
}

func TestBuildMatrix(t *testing.T) {
	m := BuildMatrix([]domain.Interaction{
		{EntityID: "c1", ItemID: "sku-1", Quantity: 2},
		{EntityID: "c1", ItemID: "sku-1", Quantity: 3},
		{EntityID: "c1", ItemID: "sku-2", Quantity: 1},
		{EntityID: "c2", ItemID: "sku-2", Quantity: 4},
		{EntityID: "", ItemID: "sku-3", Quantity: 9},
		{EntityID: "c3", ItemID: "", Quantity: 9},
	})

	assert.Equal(t, domain.RatingMatrix{
		"c1": {"sku-1": 5, "sku-2": 1},
		"c2": {"sku-2": 4},
	}, m)
	assert.Equal(t, []string{"c1", "c2"}, Entities(m))
}
