package handler

import (
	"context"
	"math"
	"math/rand"

	"github.com/hearthrun/hearthrun/internal/hearthrunerr"
	"github.com/hearthrun/hearthrun/internal/pipeline"
)

// ClusterAlgorithm is the closed set of clustering strategies cluster()
// accepts.
type ClusterAlgorithm string

const (
	KMeans       ClusterAlgorithm = "KMeans"
	Hierarchical ClusterAlgorithm = "Hierarchical"
	DBSCAN       ClusterAlgorithm = "DBSCAN"
)

// Linkage is the closed set of Hierarchical's distance-between-clusters
// strategies.
type Linkage string

const (
	LinkageSingle   Linkage = "single"
	LinkageComplete Linkage = "complete"
	LinkageAverage  Linkage = "average"
	LinkageWard     Linkage = "ward"
)

// ClusterOptions carries the algorithm-specific knobs. K is required for
// KMeans/Hierarchical; Eps/MinPoints for DBSCAN; Seed makes KMeans
// reproducible across calls with the same input.
type ClusterOptions struct {
	Algorithm ClusterAlgorithm
	K         int
	Seed      int64
	Linkage   Linkage
	Eps       float64
	MinPoints int
}

// ClusterResult is cluster()'s payload: one label per input text (-1
// means noise, DBSCAN only) plus a silhouette quality score.
type ClusterResult struct {
	Labels     []int
	Silhouette float64
}

// Cluster embeds texts against modelID (or the active model) and groups
// them per opts.Algorithm.
func (h *Handler) Cluster(ctx context.Context, modelID string, texts []string, opts ClusterOptions) (ClusterResult, error) {
	if len(texts) == 0 {
		return ClusterResult{}, hearthrunerr.New(hearthrunerr.InvalidRequest, "cluster requires at least one text")
	}

	lm, err := h.modelFor(modelID)
	if err != nil {
		return ClusterResult{}, err
	}
	adapter, err := h.adapters.For(lm.Recipe.Engine)
	if err != nil {
		return ClusterResult{}, err
	}

	texts = normalizeTexts(texts)

	lm.GenLock.Lock()
	vectors, err := pipeline.Dispatch(lm.Descriptor).Embed(ctx, lm.Handle, adapter, texts)
	lm.GenLock.Unlock()
	if err != nil {
		return ClusterResult{}, hearthrunerr.Wrap(hearthrunerr.NotSupportedByEngine, err)
	}

	points := toFloat64(vectors)

	var labels []int
	switch opts.Algorithm {
	case KMeans:
		if opts.K <= 0 || opts.K > len(points) {
			return ClusterResult{}, hearthrunerr.New(hearthrunerr.InvalidRequest, "KMeans requires 0 < k <= number of texts")
		}
		labels = kMeans(points, opts.K, opts.Seed)
	case Hierarchical:
		if opts.K <= 0 || opts.K > len(points) {
			return ClusterResult{}, hearthrunerr.New(hearthrunerr.InvalidRequest, "Hierarchical requires 0 < k <= number of texts")
		}
		linkage := opts.Linkage
		if linkage == "" {
			linkage = LinkageAverage
		}
		labels = agglomerative(points, opts.K, linkage)
	case DBSCAN:
		eps := opts.Eps
		if eps <= 0 {
			eps = 0.3
		}
		minPts := opts.MinPoints
		if minPts <= 0 {
			minPts = 2
		}
		labels = dbscan(points, eps, minPts)
	default:
		return ClusterResult{}, hearthrunerr.Newf(hearthrunerr.InvalidRequest, "unknown cluster algorithm %q", opts.Algorithm)
	}

	return ClusterResult{Labels: labels, Silhouette: silhouetteScore(points, labels)}, nil
}

func toFloat64(vectors [][]float32) [][]float64 {
	out := make([][]float64, len(vectors))
	for i, v := range vectors {
		row := make([]float64, len(v))
		for j, f := range v {
			row[j] = float64(f)
		}
		out[i] = row
	}
	return out
}

func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func cosineDistance(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

// kMeans runs Lloyd's algorithm to convergence (or a fixed iteration cap)
// from k centroids chosen by a seeded random sample of the input points,
// reproducible across calls given the same seed.
func kMeans(points [][]float64, k int, seed int64) []int {
	n := len(points)
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(n)
	centroids := make([][]float64, k)
	for i := 0; i < k; i++ {
		centroids[i] = append([]float64(nil), points[perm[i]]...)
	}

	labels := make([]int, n)
	const maxIterations = 100
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, p := range points {
			best, bestDist := 0, math.Inf(1)
			for c, centroid := range centroids {
				if d := euclidean(p, centroid); d < bestDist {
					best, bestDist = c, d
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for i := range sums {
			sums[i] = make([]float64, len(points[0]))
		}
		for i, p := range points {
			c := labels[i]
			counts[c]++
			for j, v := range p {
				sums[c][j] += v
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			for j := range sums[c] {
				centroids[c][j] = sums[c][j] / float64(counts[c])
			}
		}
	}
	return labels
}

// agglomerative performs bottom-up clustering with opts.Linkage, merging
// the two closest clusters until exactly k remain.
func agglomerative(points [][]float64, k int, linkage Linkage) []int {
	n := len(points)
	clusters := make([][]int, n)
	for i := range clusters {
		clusters[i] = []int{i}
	}

	dist := func(a, b []int) float64 {
		switch linkage {
		case LinkageSingle:
			best := math.Inf(1)
			for _, i := range a {
				for _, j := range b {
					if d := euclidean(points[i], points[j]); d < best {
						best = d
					}
				}
			}
			return best
		case LinkageComplete:
			worst := 0.0
			for _, i := range a {
				for _, j := range b {
					if d := euclidean(points[i], points[j]); d > worst {
						worst = d
					}
				}
			}
			return worst
		case LinkageWard:
			ca, cb := centroidOf(points, a), centroidOf(points, b)
			factor := float64(len(a)*len(b)) / float64(len(a)+len(b))
			return factor * euclidean(ca, cb) * euclidean(ca, cb)
		default: // average
			var sum float64
			for _, i := range a {
				for _, j := range b {
					sum += euclidean(points[i], points[j])
				}
			}
			return sum / float64(len(a)*len(b))
		}
	}

	for len(clusters) > k {
		bi, bj, best := 0, 1, math.Inf(1)
		for i := 0; i < len(clusters); i++ {
			for j := i + 1; j < len(clusters); j++ {
				if d := dist(clusters[i], clusters[j]); d < best {
					bi, bj, best = i, j, d
				}
			}
		}
		clusters[bi] = append(clusters[bi], clusters[bj]...)
		clusters = append(clusters[:bj], clusters[bj+1:]...)
	}

	labels := make([]int, n)
	for label, cluster := range clusters {
		for _, idx := range cluster {
			labels[idx] = label
		}
	}
	return labels
}

func centroidOf(points [][]float64, idxs []int) []float64 {
	out := make([]float64, len(points[0]))
	for _, i := range idxs {
		for j, v := range points[i] {
			out[j] += v
		}
	}
	for j := range out {
		out[j] /= float64(len(idxs))
	}
	return out
}

// dbscan clusters by cosine distance, labeling points that never reach
// minPts density as noise (-1), the reference implementation's chosen
// metric for text embeddings.
func dbscan(points [][]float64, eps float64, minPts int) []int {
	n := len(points)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -2 // unvisited sentinel, never returned
	}

	neighbors := func(i int) []int {
		var out []int
		for j := 0; j < n; j++ {
			if j != i && cosineDistance(points[i], points[j]) <= eps {
				out = append(out, j)
			}
		}
		return out
	}

	cluster := 0
	for i := 0; i < n; i++ {
		if labels[i] != -2 {
			continue
		}
		neigh := neighbors(i)
		if len(neigh)+1 < minPts {
			labels[i] = -1
			continue
		}
		labels[i] = cluster
		queue := append([]int{}, neigh...)
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]
			if labels[j] == -1 {
				labels[j] = cluster
			}
			if labels[j] != -2 {
				continue
			}
			labels[j] = cluster
			jNeigh := neighbors(j)
			if len(jNeigh)+1 >= minPts {
				queue = append(queue, jNeigh...)
			}
		}
		cluster++
	}
	return labels
}

// silhouetteScore returns the mean silhouette coefficient, or 0 when
// fewer than two clusters exist (silhouette is undefined there).
func silhouetteScore(points [][]float64, labels []int) float64 {
	distinct := map[int]bool{}
	for _, l := range labels {
		if l >= 0 {
			distinct[l] = true
		}
	}
	if len(distinct) < 2 {
		return 0
	}

	n := len(points)
	var total float64
	var counted int
	for i := 0; i < n; i++ {
		if labels[i] < 0 {
			continue
		}
		a := meanDistanceToCluster(points, labels, i, labels[i])
		b := math.Inf(1)
		for other := range distinct {
			if other == labels[i] {
				continue
			}
			if d := meanDistanceToCluster(points, labels, i, other); d < b {
				b = d
			}
		}
		s := 0.0
		if m := math.Max(a, b); m > 0 {
			s = (b - a) / m
		}
		total += s
		counted++
	}
	if counted == 0 {
		return 0
	}
	return total / float64(counted)
}

func meanDistanceToCluster(points [][]float64, labels []int, i, cluster int) float64 {
	var sum float64
	var count int
	for j, l := range labels {
		if l != cluster || j == i {
			continue
		}
		sum += euclidean(points[i], points[j])
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
