package device

import (
	"context"
	"time"

	"github.com/ironsheep/boxfilter/internal/filter"
	"github.com/ironsheep/boxfilter/internal/pixel"
)

// CPUName is the registry name of the sequential device.
const CPUName = "cpu"

var _ Device = (*CPU)(nil)

// CPU filters on the calling goroutine. It is the reference the other
// devices are tested against.
type CPU struct {
	memory
}

// NewCPU returns an open sequential device.
func NewCPU() *CPU {
	c := &CPU{}
	c.init(CPUName)
	return c
}

// BoxFilter filters src into dst. The context is only checked before the
// work starts.
func (c *CPU) BoxFilter(ctx context.Context, dst, src *pixel.Buffer, k filter.Kernel) error {
	if err := c.checkPair(dst, src); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	if err := filter.Box(dst, src, k); err != nil {
		return err
	}
	c.log().Debug("box filter", "kernel", k, "width", src.Width, "height", src.Height,
		"elapsed", time.Since(start))
	return nil
}
