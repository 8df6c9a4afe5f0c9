package imaging

import (
	"image"
	"math"
)

// Stats summarizes the pixel values of a grayscale image.
type Stats struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"` // population variance
	Min      uint8   `json:"min"`
	Max      uint8   `json:"max"`
}

// StdDev returns the population standard deviation.
func (s Stats) StdDev() float64 {
	return math.Sqrt(s.Variance)
}

// GrayStats computes the mean, variance and range of img.
//
// The variance uses a two-pass sum so that large, nearly uniform images do
// not lose precision.
func GrayStats(img *image.Gray) Stats {
	b := img.Bounds()
	n := float64(b.Dx() * b.Dy())
	if n == 0 {
		return Stats{}
	}

	var sum float64
	lo, hi := uint8(255), uint8(0)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := img.GrayAt(x, y).Y
			sum += float64(v)
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	mean := sum / n

	var sq float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			d := float64(img.GrayAt(x, y).Y) - mean
			sq += d * d
		}
	}

	return Stats{
		Mean:     mean,
		Variance: sq / n,
		Min:      lo,
		Max:      hi,
	}
}
