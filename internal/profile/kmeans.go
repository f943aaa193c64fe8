package profile

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	kmeansSeed          = 1
	kmeansMaxIterations = 100

	// Below this silhouette score the clustering is not meaningfully better
	// than a single group.
	minSilhouette = 0.25
)

// cluster partitions the standardized track vectors with k-means, choosing k
// by silhouette score, and attaches raw-unit centroids and member track IDs.
func (b *Builder) cluster(vectors [][]float64, trackIDs []int64, prof *Profile) []Cluster {
	standardized := standardizeAgainst(vectors, prof)

	maxK := b.maxClusters
	if maxK > len(vectors) {
		maxK = len(vectors)
	}
	if maxK < 1 {
		maxK = 1
	}

	bestK := 1
	bestScore := math.Inf(-1)
	var bestAssign []int
	for k := 2; k <= maxK; k++ {
		assign := lloyd(standardized, k, rand.New(rand.NewSource(kmeansSeed)))
		score := silhouette(standardized, assign, k)
		if score > bestScore {
			bestScore = score
			bestK = k
			bestAssign = assign
		}
	}
	if bestScore < minSilhouette {
		bestK = 1
		bestAssign = make([]int, len(vectors))
	}

	clusters := make([]Cluster, bestK)
	names := prof.MetricOrder
	for c := range clusters {
		centroid := make([]float64, len(names))
		var ids []int64
		count := 0
		for i, a := range bestAssign {
			if a != c {
				continue
			}
			floats.Add(centroid, vectors[i])
			ids = append(ids, trackIDs[i])
			count++
		}
		if count > 0 {
			floats.Scale(1/float64(count), centroid)
		}
		byName := make(map[string]float64, len(names))
		for d, name := range names {
			byName[name] = centroid[d]
		}
		clusters[c] = Cluster{
			Label:    clusterLabel(byName, prof),
			Size:     count,
			Centroid: byName,
			TrackIDs: ids,
		}
	}
	return clusters
}

func standardizeAgainst(vectors [][]float64, prof *Profile) [][]float64 {
	out := make([][]float64, len(vectors))
	for i, vec := range vectors {
		z := make([]float64, len(vec))
		for d, name := range prof.MetricOrder {
			stats := prof.Stats[name]
			z[d] = (vec[d] - stats.Mean) / math.Max(stats.StdDev, StdDevFloor)
		}
		out[i] = z
	}
	return out
}

// lloyd runs k-means with k-means++ seeding until assignments stabilize.
func lloyd(points [][]float64, k int, rng *rand.Rand) []int {
	centroids := seedPlusPlus(points, k, rng)
	assign := make([]int, len(points))
	prev := make([]int, len(points))

	for iter := 0; iter < kmeansMaxIterations; iter++ {
		for i, p := range points {
			assign[i] = nearestCentroid(p, centroids)
		}

		changed := false
		for i := range assign {
			if assign[i] != prev[i] {
				changed = true
				break
			}
		}
		copy(prev, assign)
		if iter > 0 && !changed {
			break
		}

		for c := range centroids {
			for d := range centroids[c] {
				centroids[c][d] = 0
			}
			count := 0
			for i, a := range assign {
				if a != c {
					continue
				}
				floats.Add(centroids[c], points[i])
				count++
			}
			if count > 0 {
				floats.Scale(1/float64(count), centroids[c])
			} else {
				// Reseed an emptied centroid on a random point.
				copy(centroids[c], points[rng.Intn(len(points))])
			}
		}
	}
	return assign
}

// seedPlusPlus picks initial centroids with probability proportional to the
// squared distance from already-chosen centroids.
func seedPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	first := make([]float64, len(points[0]))
	copy(first, points[rng.Intn(len(points))])
	centroids = append(centroids, first)

	dist2 := make([]float64, len(points))
	for len(centroids) < k {
		var total float64
		for i, p := range points {
			d := squaredDistance(p, centroids[nearestCentroid(p, centroids)])
			dist2[i] = d
			total += d
		}
		var next int
		if total == 0 {
			next = rng.Intn(len(points))
		} else {
			target := rng.Float64() * total
			var cum float64
			for i, d := range dist2 {
				cum += d
				if cum >= target {
					next = i
					break
				}
			}
		}
		c := make([]float64, len(points[next]))
		copy(c, points[next])
		centroids = append(centroids, c)
	}
	return centroids
}

func nearestCentroid(p []float64, centroids [][]float64) int {
	best := 0
	bestDist := math.Inf(1)
	for c, centroid := range centroids {
		if d := squaredDistance(p, centroid); d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// silhouette is the mean silhouette coefficient over all points: cohesion
// against the own cluster versus separation from the nearest other cluster.
func silhouette(points [][]float64, assign []int, k int) float64 {
	if k < 2 {
		return 0
	}
	scores := make([]float64, 0, len(points))
	for i, p := range points {
		var ownSum float64
		ownCount := 0
		otherMean := math.Inf(1)
		for c := 0; c < k; c++ {
			var sum float64
			count := 0
			for j, q := range points {
				if assign[j] != c || i == j {
					continue
				}
				sum += math.Sqrt(squaredDistance(p, q))
				count++
			}
			if c == assign[i] {
				ownSum = sum
				ownCount = count
				continue
			}
			if count > 0 {
				if mean := sum / float64(count); mean < otherMean {
					otherMean = mean
				}
			}
		}
		if ownCount == 0 || math.IsInf(otherMean, 1) {
			continue
		}
		a := ownSum / float64(ownCount)
		s := (otherMean - a) / math.Max(a, otherMean)
		scores = append(scores, s)
	}
	if len(scores) == 0 {
		return 0
	}
	return stat.Mean(scores, nil)
}
