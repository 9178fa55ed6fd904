package score

import "math"

// MaxPMI caps PMI for stability on small corpora
const MaxPMI = 5.0

// PMI computes log2(joint*n / (x*y)), clamped to 0..MaxPMI.
// Missing counts give 0.
func PMI(joint, x, y, n int) float64 {
	if joint <= 0 || x <= 0 || y <= 0 || n <= 0 {
		return 0
	}
	pmi := math.Log2(float64(joint) * float64(n) / (float64(x) * float64(y)))
	switch {
	case pmi < 0:
		return 0
	case pmi > MaxPMI:
		return MaxPMI
	}
	return pmi
}
