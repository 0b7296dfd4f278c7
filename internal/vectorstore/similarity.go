package vectorstore

import (
	"math"

	"huda/internal/domain"
)

// Score computes the similarity between two vectors under a distance
// metric. For Euclid the score is the distance itself (lower is closer),
// matching how Qdrant reports it.
func Score(distance domain.Distance, a, b []float32) float64 {
	switch distance {
	case domain.DistanceDot:
		return dot(a, b)
	case domain.DistanceEuclid:
		sum := 0.0
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return math.Sqrt(sum)
	default:
		na, nb := norm(a), norm(b)
		if na == 0 || nb == 0 {
			return 0
		}
		return dot(a, b) / (na * nb)
	}
}

// Better reports whether score a ranks ahead of score b.
func Better(distance domain.Distance, a, b float64) bool {
	if distance == domain.DistanceEuclid {
		return a < b
	}
	return a > b
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}

// ClonePayload copies the top level of a payload map.
func ClonePayload(p map[string]any) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
