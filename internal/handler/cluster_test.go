package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarityOfIdenticalVectors(t *testing.T) {
	a := []float32{1, 2, 3}
	assert.InDelta(t, 1.0, cosineSimilarity(a, a), 1e-9)
}

func TestCosineSimilarityOrthogonal(t *testing.T) {
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
}

func TestCosineSimilarityZeroVector(t *testing.T) {
	assert.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}

func TestKMeansSeparatesObviousClusters(t *testing.T) {
	points := [][]float64{
		{0, 0}, {0.1, 0.1}, {0, 0.2},
		{10, 10}, {10.1, 9.9}, {9.9, 10},
	}
	labels := kMeans(points, 2, 42)
	assert.Equal(t, labels[0], labels[1])
	assert.Equal(t, labels[1], labels[2])
	assert.Equal(t, labels[3], labels[4])
	assert.Equal(t, labels[4], labels[5])
	assert.NotEqual(t, labels[0], labels[3])
}

func TestDBSCANFindsNoiseAndClusters(t *testing.T) {
	points := [][]float64{
		{1, 0}, {1, 0.01}, {1, -0.01}, // tight cluster
		{0, 1}, // far outlier, cosine-distant from the cluster above
	}
	labels := dbscan(points, 0.05, 2)
	assert.Equal(t, labels[0], labels[1])
	assert.Equal(t, labels[1], labels[2])
	assert.Equal(t, -1, labels[3])
}

func TestSilhouetteScoreRequiresTwoClusters(t *testing.T) {
	points := [][]float64{{0, 0}, {1, 1}, {2, 2}}
	labels := []int{0, 0, 0}
	assert.Equal(t, 0.0, silhouetteScore(points, labels))
}

func TestSilhouetteScoreSeparatedClusters(t *testing.T) {
	points := [][]float64{{0, 0}, {0.1, 0.1}, {10, 10}, {10.1, 9.9}}
	labels := []int{0, 0, 1, 1}
	score := silhouetteScore(points, labels)
	assert.Greater(t, score, 0.9)
}

func TestTopKSortedOrdersDescendingAndTruncates(t *testing.T) {
	scored := []ScoredDocument{
		{Index: 0, Score: 0.2},
		{Index: 1, Score: 0.9},
		{Index: 2, Score: 0.5},
	}
	top := topKSorted(scored, 2)
	assert.Len(t, top, 2)
	assert.Equal(t, 1, top[0].Index)
	assert.Equal(t, 2, top[1].Index)
}

func TestNormalizeTextFoldsCombiningFormToPrecomposed(t *testing.T) {
	decomposed := "café" // "e" followed by a combining acute accent
	precomposed := "café" // single precomposed character
	assert.NotEqual(t, decomposed, precomposed)
	assert.Equal(t, precomposed, normalizeText(decomposed))
}

func TestNormalizeTextsAppliesToEveryElement(t *testing.T) {
	in := []string{"café", "plain"}
	out := normalizeTexts(in)
	assert.Equal(t, []string{"café", "plain"}, out)
}

func TestAgglomerativeMergesToK(t *testing.T) {
	points := [][]float64{{0, 0}, {0.1, 0}, {5, 5}, {5.1, 5}}
	labels := agglomerative(points, 2, LinkageAverage)
	assert.Equal(t, labels[0], labels[1])
	assert.Equal(t, labels[2], labels[3])
	assert.NotEqual(t, labels[0], labels[2])
}
