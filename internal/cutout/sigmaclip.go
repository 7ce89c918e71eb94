package cutout

import "math"

// Clip performs iterative sigma clipping over a grid. Each iteration
// computes the mean and sample standard deviation of the unmasked pixels
// and masks every pixel more than sigma standard deviations from the
// mean. Iteration stops when a pass masks nothing, when the remaining
// pixels have zero spread, or after maxIters passes.
func Clip(g *Grid, sigma float64, maxIters int) *Mask {
	mask := NewMask(g.Rows(), g.Cols())

	for iter := 0; iter < maxIters; iter++ {
		mean, stddev, n := clipStats(g, mask)
		if n < 2 || stddev == 0 {
			break
		}

		cut := sigma * stddev
		changed := 0
		for r := 0; r < g.Rows(); r++ {
			for c := 0; c < g.Cols(); c++ {
				if mask.IsSet(r, c) {
					continue
				}
				if math.Abs(g.At(r, c)-mean) > cut {
					mask.Set(r, c)
					changed++
				}
			}
		}

		if changed == 0 {
			break
		}
	}

	return mask
}

// clipStats computes the mean and sample standard deviation (n-1
// denominator) over unmasked pixels.
func clipStats(g *Grid, mask *Mask) (mean, stddev float64, n int) {
	sum := 0.0
	for r := 0; r < g.Rows(); r++ {
		for c := 0; c < g.Cols(); c++ {
			if mask.IsSet(r, c) {
				continue
			}
			sum += g.At(r, c)
			n++
		}
	}
	if n == 0 {
		return 0, 0, 0
	}
	mean = sum / float64(n)

	if n < 2 {
		return mean, 0, n
	}
	sumSq := 0.0
	for r := 0; r < g.Rows(); r++ {
		for c := 0; c < g.Cols(); c++ {
			if mask.IsSet(r, c) {
				continue
			}
			diff := g.At(r, c) - mean
			sumSq += diff * diff
		}
	}
	stddev = math.Sqrt(sumSq / float64(n-1))
	return mean, stddev, n
}
