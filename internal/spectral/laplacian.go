// Package spectral implements C4: spectral clustering over the combined
// tool/capability adjacency and hypergraph PageRank over the same graph.
// Both are re-derived from the bipartite tool<->capability membership
// plus capability<->capability edges the graph store exposes, grounded on
// the dense row-major Matrix type in internal/kernel.
package spectral

import (
	"math"

	"github.com/toolgraph/shgat/internal/kernel"
)

// AdjacencyNode names one row/column of the combined adjacency matrix.
type AdjacencyNode struct {
	IsCapability bool
	ID           string // tool id, or capability UUID string
}

// Adjacency is the symmetric, non-negative weighted adjacency matrix fed
// into spectral clustering and PageRank.
type Adjacency struct {
	Nodes  []AdjacencyNode
	Matrix *kernel.Matrix
}

// NormalizedLaplacian computes L_sym = I - D^-1/2 * A * D^-1/2 (spec.md
// §4.4). Isolated nodes (degree 0) keep an identity row: 1 on the
// diagonal and 0 elsewhere.
func NormalizedLaplacian(a *Adjacency) *kernel.Matrix {
	n := a.Matrix.Rows
	deg := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := 0.0
		for j := 0; j < n; j++ {
			sum += float64(a.Matrix.At(i, j))
		}
		deg[i] = sum
	}
	invSqrt := make([]float64, n)
	for i, d := range deg {
		if d > 0 {
			invSqrt[i] = 1 / math.Sqrt(d)
		}
	}

	l := kernel.NewMatrix(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			var v float64
			if i == j {
				v = 1
			}
			if invSqrt[i] > 0 && invSqrt[j] > 0 {
				v -= invSqrt[i] * float64(a.Matrix.At(i, j)) * invSqrt[j]
			}
			l.Set(i, j, float32(v))
		}
	}
	return l
}

// EigenResult holds ascending-sorted eigenvalues and their eigenvectors
// (columns of Vectors, Vectors.At(i, k) is component i of eigenvector k).
type EigenResult struct {
	Values  []float64
	Vectors *kernel.Matrix
}

// JacobiEigen computes the full eigendecomposition of a symmetric matrix
// via the cyclic Jacobi rotation method, adequate for the small
// (hundreds-of-nodes) graphs this engine clusters. Eigenvalues are
// returned in ascending order.
func JacobiEigen(sym *kernel.Matrix, maxSweeps int) EigenResult {
	n := sym.Rows
	a := make([][]float64, n)
	for i := range a {
		a[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			a[i][j] = float64(sym.At(i, j))
		}
	}
	v := make([][]float64, n)
	for i := range v {
		v[i] = make([]float64, n)
		v[i][i] = 1
	}

	for sweep := 0; sweep < maxSweeps; sweep++ {
		off := offDiagonalNorm(a)
		if off < 1e-12 {
			break
		}
		for p := 0; p < n-1; p++ {
			for q := p + 1; q < n; q++ {
				if math.Abs(a[p][q]) < 1e-15 {
					continue
				}
				theta := (a[q][q] - a[p][p]) / (2 * a[p][q])
				t := math.Copysign(1, theta) / (math.Abs(theta) + math.Sqrt(1+theta*theta))
				if theta == 0 {
					t = 1
				}
				c := 1 / math.Sqrt(1+t*t)
				s := t * c

				app, aqq, apq := a[p][p], a[q][q], a[p][q]
				a[p][p] = c*c*app - 2*s*c*apq + s*s*aqq
				a[q][q] = s*s*app + 2*s*c*apq + c*c*aqq
				a[p][q] = 0
				a[q][p] = 0

				for i := 0; i < n; i++ {
					if i == p || i == q {
						continue
					}
					aip, aiq := a[i][p], a[i][q]
					a[i][p] = c*aip - s*aiq
					a[p][i] = a[i][p]
					a[i][q] = s*aip + c*aiq
					a[q][i] = a[i][q]
				}
				for i := 0; i < n; i++ {
					vip, viq := v[i][p], v[i][q]
					v[i][p] = c*vip - s*viq
					v[i][q] = s*vip + c*viq
				}
			}
		}
	}

	values := make([]float64, n)
	for i := 0; i < n; i++ {
		values[i] = a[i][i]
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	// simple insertion sort ascending by eigenvalue; n is small.
	for i := 1; i < n; i++ {
		for j := i; j > 0 && values[order[j-1]] > values[order[j]]; j-- {
			order[j-1], order[j] = order[j], order[j-1]
		}
	}

	sortedValues := make([]float64, n)
	vectors := kernel.NewMatrix(n, n)
	for k, idx := range order {
		sortedValues[k] = values[idx]
		for i := 0; i < n; i++ {
			vectors.Set(i, k, float32(v[i][idx]))
		}
	}
	return EigenResult{Values: sortedValues, Vectors: vectors}
}

func offDiagonalNorm(a [][]float64) float64 {
	n := len(a)
	sum := 0.0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sum += 2 * a[i][j] * a[i][j]
		}
	}
	return math.Sqrt(sum)
}

// EigengapK picks the number of clusters as the index of the largest gap
// between consecutive ascending eigenvalues, clamped to [2, 5] (spec.md
// §4.4). values[0] (the trivial near-zero eigenvalue) is ignored.
func EigengapK(values []float64) int {
	const minK, maxK = 2, 5
	if len(values) <= minK {
		return min(minK, len(values))
	}
	bestGap := -1.0
	bestK := minK
	upper := maxK
	if upper > len(values)-1 {
		upper = len(values) - 1
	}
	for k := minK; k <= upper; k++ {
		gap := values[k] - values[k-1]
		if gap > bestGap {
			bestGap = gap
			bestK = k
		}
	}
	return bestK
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
