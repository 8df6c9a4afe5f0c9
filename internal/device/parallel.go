package device

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/boxfilter/internal/filter"
	"github.com/ironsheep/boxfilter/internal/pixel"
)

// ParallelName is the registry name of the row-band device.
const ParallelName = "parallel"

// minBandRows keeps bands large enough that scheduling does not dominate.
const minBandRows = 16

var _ Device = (*Parallel)(nil)

// Parallel filters horizontal bands of the image concurrently.
type Parallel struct {
	memory
	workers int
}

// NewParallel returns an open device running at most workers bands at once.
// workers <= 0 means runtime.GOMAXPROCS(0).
func NewParallel(workers int) *Parallel {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := &Parallel{workers: workers}
	p.init(ParallelName)
	return p
}

// Workers returns the concurrency limit.
func (p *Parallel) Workers() int { return p.workers }

// BoxFilter filters src into dst. Cancelling ctx stops bands that have not
// started yet and returns the context error; dst is then partially written.
func (p *Parallel) BoxFilter(ctx context.Context, dst, src *pixel.Buffer, k filter.Kernel) error {
	if err := p.checkPair(dst, src); err != nil {
		return err
	}
	if err := filter.Check(dst, src, k); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	bands := bandRanges(src.Height, p.workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, b := range bands {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			filter.BoxRows(dst, src, k, b[0], b[1])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	p.log().Debug("box filter", "kernel", k, "width", src.Width, "height", src.Height,
		"bands", len(bands), "workers", p.workers, "elapsed", time.Since(start))
	return nil
}

// bandRanges splits [0, height) into at most workers contiguous [start, end)
// ranges of at least minBandRows rows, except when the image is smaller.
func bandRanges(height, workers int) [][2]int {
	n := min(workers, (height+minBandRows-1)/minBandRows)
	n = max(n, 1)
	size := (height + n - 1) / n

	ranges := make([][2]int, 0, n)
	for start := 0; start < height; start += size {
		ranges = append(ranges, [2]int{start, min(start+size, height)})
	}
	return ranges
}
