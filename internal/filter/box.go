// Package filter implements the bordered box (mean) filter on Gray8 buffers.
package filter

import (
	"errors"
	"fmt"

	"github.com/ironsheep/boxfilter/internal/pixel"
)

var (
	// ErrInvalidKernel is returned for kernels with non-positive dimensions,
	// an anchor outside the mask, or an unsupported border mode.
	ErrInvalidKernel = errors.New("invalid kernel")

	// ErrMismatch is returned when source and destination buffers cannot be
	// paired: different sizes, formats or locations, or shared storage.
	ErrMismatch = errors.New("buffer mismatch")
)

// BorderMode selects how samples outside the image are produced.
type BorderMode int

const (
	// BorderReplicate clamps out-of-bounds coordinates to the nearest edge pixel.
	BorderReplicate BorderMode = iota
)

func (m BorderMode) String() string {
	if m == BorderReplicate {
		return "replicate"
	}
	return fmt.Sprintf("BorderMode(%d)", int(m))
}

// Kernel describes a box filter mask.
//
// For output pixel (x, y) the window covers source columns
// x-AnchorX .. x-AnchorX+Width-1 and rows y-AnchorY .. y-AnchorY+Height-1.
type Kernel struct {
	Width   int
	Height  int
	AnchorX int
	AnchorY int
	Border  BorderMode
}

// DefaultKernel is a 5x5 mask anchored at its center with replicated borders.
func DefaultKernel() Kernel {
	return Kernel{Width: 5, Height: 5, AnchorX: 2, AnchorY: 2, Border: BorderReplicate}
}

// Validate reports ErrInvalidKernel if k cannot be applied.
func (k Kernel) Validate() error {
	switch {
	case k.Width <= 0 || k.Height <= 0:
		return fmt.Errorf("%w: mask %dx%d", ErrInvalidKernel, k.Width, k.Height)
	case k.AnchorX < 0 || k.AnchorX >= k.Width || k.AnchorY < 0 || k.AnchorY >= k.Height:
		return fmt.Errorf("%w: anchor (%d,%d) outside %dx%d mask",
			ErrInvalidKernel, k.AnchorX, k.AnchorY, k.Width, k.Height)
	case k.Border != BorderReplicate:
		return fmt.Errorf("%w: border mode %v", ErrInvalidKernel, k.Border)
	}
	return nil
}

func (k Kernel) String() string {
	return fmt.Sprintf("%dx%d@(%d,%d) %v", k.Width, k.Height, k.AnchorX, k.AnchorY, k.Border)
}

// Box writes the box-filtered src into dst.
func Box(dst, src *pixel.Buffer, k Kernel) error {
	if err := Check(dst, src, k); err != nil {
		return err
	}
	BoxRows(dst, src, k, 0, src.Height)
	return nil
}

// Check validates k and the dst/src pairing. Callers that split work with
// BoxRows run it once up front.
func Check(dst, src *pixel.Buffer, k Kernel) error {
	if err := k.Validate(); err != nil {
		return err
	}
	if err := src.Validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := dst.Validate(); err != nil {
		return fmt.Errorf("destination: %w", err)
	}
	switch {
	case src.Format != pixel.Gray8:
		return fmt.Errorf("%w: format %v", ErrMismatch, src.Format)
	case !pixel.SameSize(dst, src):
		return fmt.Errorf("%w: destination %dx%d, source %dx%d",
			ErrMismatch, dst.Width, dst.Height, src.Width, src.Height)
	case dst.Location != src.Location:
		return fmt.Errorf("%w: destination in %v memory, source in %v memory",
			ErrMismatch, dst.Location, src.Location)
	case pixel.Overlaps(dst, src):
		return fmt.Errorf("%w: destination aliases source", ErrMismatch)
	}
	return nil
}

// BoxRows filters output rows [y0, y1). It does no validation; see Check.
// Distinct row ranges touch disjoint parts of dst and may run concurrently.
//
// Each output is the rounded mean (sum + n/2) / n of the n = Width*Height
// window samples.
func BoxRows(dst, src *pixel.Buffer, k Kernel, y0, y1 int) {
	width, height := src.Width, src.Height
	n := k.Width * k.Height
	half := n / 2

	// Column sums for one output row, indexed by source column.
	cols := make([]int, width)

	for y := y0; y < y1; y++ {
		for i := range cols {
			cols[i] = 0
		}
		for ky := 0; ky < k.Height; ky++ {
			row := src.Row(clamp(y-k.AnchorY+ky, 0, height-1))
			for x, v := range row {
				cols[x] += int(v)
			}
		}

		out := dst.Row(y)
		for x := 0; x < width; x++ {
			sum := 0
			for kx := 0; kx < k.Width; kx++ {
				sum += cols[clamp(x-k.AnchorX+kx, 0, width-1)]
			}
			out[x] = uint8((sum + half) / n)
		}
	}
}

// clamp constrains val to [min, max]. This is the replicate border policy.
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
