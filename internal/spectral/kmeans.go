package spectral

import (
	"math"

	"github.com/toolgraph/shgat/internal/kernel"
)

// KMeansResult maps each input row to a cluster id in [0, k).
type KMeansResult struct {
	Assignments []int
	Centroids   [][]float64
}

// KMeansPlusPlus clusters rows (each a vector of k spectral-embedding
// coordinates) into k clusters, seeded via the k-means++ initialization
// and a fixed iteration cap (spec.md §4.4).
func KMeansPlusPlus(rows [][]float64, k int, rng *kernel.Mulberry32, maxIters int) KMeansResult {
	n := len(rows)
	if n == 0 || k <= 0 {
		return KMeansResult{}
	}
	if k > n {
		k = n
	}

	centroids := seedPlusPlus(rows, k, rng)
	assignments := make([]int, n)

	for iter := 0; iter < maxIters; iter++ {
		changed := false
		for i, row := range rows {
			best, bestDist := 0, math.Inf(1)
			for c, centroid := range centroids {
				d := squaredDist(row, centroid)
				if d < bestDist {
					bestDist = d
					best = c
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		dim := len(rows[0])
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, row := range rows {
			c := assignments[i]
			counts[c]++
			for d, v := range row {
				sums[c][d] += v
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			for d := range centroids[c] {
				centroids[c][d] = sums[c][d] / float64(counts[c])
			}
		}
		if !changed && iter > 0 {
			break
		}
	}

	return KMeansResult{Assignments: assignments, Centroids: centroids}
}

func seedPlusPlus(rows [][]float64, k int, rng *kernel.Mulberry32) [][]float64 {
	n := len(rows)
	centroids := make([][]float64, 0, k)
	first := int(rng.Float32() * float32(n))
	if first >= n {
		first = n - 1
	}
	centroids = append(centroids, append([]float64(nil), rows[first]...))

	dist := make([]float64, n)
	for len(centroids) < k {
		total := 0.0
		for i, row := range rows {
			best := math.Inf(1)
			for _, c := range centroids {
				if d := squaredDist(row, c); d < best {
					best = d
				}
			}
			dist[i] = best
			total += best
		}
		if total == 0 {
			// all remaining points coincide with existing centroids
			centroids = append(centroids, append([]float64(nil), rows[len(centroids)%n]...))
			continue
		}
		target := float64(rng.Float32()) * total
		cum := 0.0
		chosen := n - 1
		for i, d := range dist {
			cum += d
			if cum >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, append([]float64(nil), rows[chosen]...))
	}
	return centroids
}

func squaredDist(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
