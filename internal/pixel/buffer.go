// Package pixel defines the pitched pixel buffer passed between pipeline stages.
//
// A Buffer records where its storage lives (host or device memory). Code never
// moves a buffer between locations implicitly; a transfer produces a new
// buffer at the other location.
package pixel

import (
	"errors"
	"fmt"
	"image"
	"unsafe"
)

var (
	// ErrInvalidBuffer is returned when a buffer violates its size invariants.
	ErrInvalidBuffer = errors.New("pixel: invalid buffer")

	// ErrNotHost is returned when host-only access is attempted on device memory.
	ErrNotHost = errors.New("pixel: buffer is not in host memory")
)

// Location says which memory a buffer's storage belongs to.
type Location int

const (
	// Host is ordinary process memory, readable by the codecs.
	Host Location = iota
	// Device is memory owned by a compute device.
	Device
)

func (l Location) String() string {
	switch l {
	case Host:
		return "host"
	case Device:
		return "device"
	}
	return fmt.Sprintf("Location(%d)", int(l))
}

// Format is the pixel layout of a buffer.
type Format int

const (
	// Gray8 is one unsigned byte per pixel.
	Gray8 Format = iota
)

// BytesPerPixel returns the size of a single pixel in bytes.
func (f Format) BytesPerPixel() int {
	switch f {
	case Gray8:
		return 1
	}
	return 0
}

func (f Format) String() string {
	switch f {
	case Gray8:
		return "gray8"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Buffer is a rectangular grid of pixels with an explicit row pitch.
//
// Pitch is the byte distance between the starts of consecutive rows and may
// exceed Width*BytesPerPixel when rows are padded for alignment.
type Buffer struct {
	Width    int
	Height   int
	Pitch    int
	Format   Format
	Location Location
	Pix      []uint8
}

// NewHost allocates a tightly packed Gray8 buffer in host memory.
func NewHost(width, height int) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidBuffer, width, height)
	}
	return &Buffer{
		Width:    width,
		Height:   height,
		Pitch:    width,
		Format:   Gray8,
		Location: Host,
		Pix:      make([]uint8, width*height),
	}, nil
}

// FromGray wraps the pixels of img without copying them. The caller hands
// ownership of img to the returned buffer.
func FromGray(img *image.Gray) (*Buffer, error) {
	r := img.Bounds()
	b := &Buffer{
		Width:    r.Dx(),
		Height:   r.Dy(),
		Pitch:    img.Stride,
		Format:   Gray8,
		Location: Host,
	}
	if r.Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidBuffer)
	}
	b.Pix = img.Pix[img.PixOffset(r.Min.X, r.Min.Y):]
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// Gray exposes a host buffer as an *image.Gray sharing the same storage.
func (b *Buffer) Gray() (*image.Gray, error) {
	if b.Location != Host {
		return nil, ErrNotHost
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &image.Gray{
		Pix:    b.Pix,
		Stride: b.Pitch,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}, nil
}

// Validate checks the buffer invariants: positive dimensions, a pitch that
// covers a full row, and storage long enough for the last row.
func (b *Buffer) Validate() error {
	bpp := b.Format.BytesPerPixel()
	switch {
	case bpp == 0:
		return fmt.Errorf("%w: unsupported format %v", ErrInvalidBuffer, b.Format)
	case b.Width <= 0 || b.Height <= 0:
		return fmt.Errorf("%w: %dx%d", ErrInvalidBuffer, b.Width, b.Height)
	case b.Pitch < b.Width*bpp:
		return fmt.Errorf("%w: pitch %d < row size %d", ErrInvalidBuffer, b.Pitch, b.Width*bpp)
	case len(b.Pix) < b.Size():
		return fmt.Errorf("%w: %d bytes, need %d", ErrInvalidBuffer, len(b.Pix), b.Size())
	}
	return nil
}

// Size is the minimum storage length the buffer needs: every full pitch but
// the last, plus one visible row.
func (b *Buffer) Size() int {
	return (b.Height-1)*b.Pitch + b.Width*b.Format.BytesPerPixel()
}

// Row returns the visible bytes of row y, excluding pitch padding.
func (b *Buffer) Row(y int) []uint8 {
	start := y * b.Pitch
	return b.Pix[start : start+b.Width*b.Format.BytesPerPixel()]
}

// SameSize reports whether a and b have identical dimensions and format.
func SameSize(a, b *Buffer) bool {
	return a.Width == b.Width && a.Height == b.Height && a.Format == b.Format
}

// Overlaps reports whether the pixel storage of a and b shares any byte.
// The check compares address ranges, so it also catches views whose capacity
// was limited with a full slice expression.
func Overlaps(a, b *Buffer) bool {
	if len(a.Pix) == 0 || len(b.Pix) == 0 {
		return false
	}
	aStart := uintptr(unsafe.Pointer(&a.Pix[0]))
	bStart := uintptr(unsafe.Pointer(&b.Pix[0]))
	return aStart < bStart+uintptr(len(b.Pix)) && bStart < aStart+uintptr(len(a.Pix))
}
