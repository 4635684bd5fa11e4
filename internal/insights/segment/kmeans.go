// Package segment partitions entities into K clusters by their feature vectors.
package segment

import (
	"github.com/andresuchdata/autopo-insights/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/insights/stats"
)

const (
	DefaultK             = 4
	DefaultMaxIterations = 100
)

// Options configures a clustering run.
type Options struct {
	K             int
	MaxIterations int

	// Normalize rescales each feature to [0,1] before distances are measured.
	// Reported centroids are always in raw feature units.
	Normalize bool
}

func DefaultOptions() Options {
	return Options{
		K:             DefaultK,
		MaxIterations: DefaultMaxIterations,
	}
}

// Result holds the clusters and how the run terminated.
type Result struct {
	Clusters   []domain.Cluster
	Iterations int
	Converged  bool
}

// Report converts the result into its serializable form.
func (r *Result) Report() *domain.SegmentReport {
	return &domain.SegmentReport{
		Clusters:   r.Clusters,
		Iterations: r.Iterations,
		Converged:  r.Converged,
	}
}

// state is one step of the assignment/update fold. centroids live in the
// space distances are measured in; rawCentroids track the same clusters in
// raw feature units.
type state struct {
	assign       []int
	centroids    [][]float64
	rawCentroids [][]float64
}

// Cluster runs Lloyd's iteration seeded with the first K vectors, so the same
// input always yields the same clusters. It stops once no entity changes
// cluster or after MaxIterations rounds, whichever comes first. A centroid
// that loses all members keeps its previous position.
func Cluster(entities []domain.EntityFeatureVector, opts Options) (*Result, error) {
	if err := validate(entities, opts); err != nil {
		return nil, err
	}

	raw := make([][]float64, len(entities))
	for i, e := range entities {
		raw[i] = e.Features
	}
	points := raw
	if opts.Normalize {
		points = stats.MinMaxNormalize(raw)
	}

	cur := state{
		assign:       make([]int, len(points)),
		centroids:    seed(points, opts.K),
		rawCentroids: seed(raw, opts.K),
	}
	for i := range cur.assign {
		cur.assign[i] = -1
	}

	iterations := 0
	converged := false
	for iterations < opts.MaxIterations {
		next, changed := step(points, raw, cur)
		iterations++
		cur = next
		if !changed {
			converged = true
			break
		}
	}
	for c := range cur.centroids {
		if !stats.AllFinite(cur.centroids[c]...) || !stats.AllFinite(cur.rawCentroids[c]...) {
			return nil, domain.NewInvalidInput("segment", "features", "values overflow")
		}
	}

	return &Result{
		Clusters:   build(entities, cur),
		Iterations: iterations,
		Converged:  converged,
	}, nil
}

func seed(points [][]float64, k int) [][]float64 {
	centroids := make([][]float64, k)
	for i := 0; i < k; i++ {
		centroids[i] = append([]float64(nil), points[i]...)
	}
	return centroids
}

// step assigns every point to its nearest centroid and recomputes the means.
func step(points, raw [][]float64, prev state) (state, bool) {
	assign := make([]int, len(points))
	changed := false
	for i, p := range points {
		assign[i] = nearest(p, prev.centroids)
		if assign[i] != prev.assign[i] {
			changed = true
		}
	}
	if !changed {
		return prev, false
	}
	return state{
		assign:       assign,
		centroids:    means(points, assign, prev.centroids),
		rawCentroids: means(raw, assign, prev.rawCentroids),
	}, true
}

// nearest returns the closest centroid; ties go to the lowest cluster index.
func nearest(p []float64, centroids [][]float64) int {
	best := 0
	bestDist := stats.EuclideanDistance(p, centroids[0])
	for c := 1; c < len(centroids); c++ {
		if d := stats.EuclideanDistance(p, centroids[c]); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func means(points [][]float64, assign []int, prev [][]float64) [][]float64 {
	dims := len(points[0])
	sums := make([][]float64, len(prev))
	counts := make([]int, len(prev))
	for c := range sums {
		sums[c] = make([]float64, dims)
	}
	for i, p := range points {
		c := assign[i]
		counts[c]++
		for d, v := range p {
			sums[c][d] += v
		}
	}

	out := make([][]float64, len(prev))
	for c := range out {
		if counts[c] == 0 {
			out[c] = append([]float64(nil), prev[c]...)
			continue
		}
		for d := range sums[c] {
			sums[c][d] /= float64(counts[c])
		}
		out[c] = sums[c]
	}
	return out
}

func build(entities []domain.EntityFeatureVector, s state) []domain.Cluster {
	clusters := make([]domain.Cluster, len(s.rawCentroids))
	for c := range clusters {
		clusters[c] = domain.Cluster{
			ClusterID: c,
			MemberIDs: []string{},
			Centroid:  s.rawCentroids[c],
		}
	}
	for i, c := range s.assign {
		clusters[c].MemberIDs = append(clusters[c].MemberIDs, entities[i].ID)
	}
	return clusters
}

func validate(entities []domain.EntityFeatureVector, opts Options) error {
	const op = "segment"
	if len(entities) == 0 {
		return domain.NewInvalidInput(op, "entities", "at least one entity is required")
	}
	if opts.K <= 0 || opts.K > len(entities) {
		return domain.NewInvalidInput(op, "k", "must be in [1,%d], got %d", len(entities), opts.K)
	}
	if opts.MaxIterations <= 0 {
		return domain.NewInvalidInput(op, "max_iterations", "must be positive, got %d", opts.MaxIterations)
	}
	dims := len(entities[0].Features)
	for i, e := range entities {
		if len(e.Features) != dims {
			return domain.NewInvalidInput(op, "features",
				"entity %q has %d features, expected %d", e.ID, len(e.Features), dims)
		}
		if j := stats.FirstNonFinite(e.Features); j >= 0 {
			return domain.NewInvalidInput(op, "features", "entity %d feature %d is not finite", i, j)
		}
	}
	return nil
}
