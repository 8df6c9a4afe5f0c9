package device

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ironsheep/boxfilter/internal/pixel"
)

// PitchAlign is the row alignment, in bytes, of device buffers.
const PitchAlign = 64

// alignPitch rounds a row size up to the next multiple of PitchAlign.
func alignPitch(rowBytes int) int {
	return (rowBytes + PitchAlign - 1) &^ (PitchAlign - 1)
}

// nopHandler discards all records. Enabled returns false so callers skip
// building attributes.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var nopLogger = slog.New(nopHandler{})

// memory is the allocation table shared by the built-in devices. Buffers are
// identified by pointer; a buffer this table did not hand out is never
// accepted back.
type memory struct {
	name string

	mu     sync.Mutex
	closed bool
	live   map[*pixel.Buffer]int // buffer -> bytes held
	stats  Stats

	logger atomic.Pointer[slog.Logger]
}

func (m *memory) init(name string) {
	m.name = name
	m.live = make(map[*pixel.Buffer]int)
	m.logger.Store(nopLogger)
}

// Name returns the registry name of the device.
func (m *memory) Name() string { return m.name }

// SetLogger sets the logger used for transfer and lifecycle messages.
func (m *memory) SetLogger(l *slog.Logger) {
	if l == nil {
		l = nopLogger
	}
	m.logger.Store(l.With("device", m.name))
}

func (m *memory) log() *slog.Logger { return m.logger.Load() }

// Alloc reserves an uninitialized Gray8 buffer with an aligned pitch.
func (m *memory) Alloc(width, height int) (*pixel.Buffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allocLocked(width, height)
}

func (m *memory) allocLocked(width, height int) (*pixel.Buffer, error) {
	if m.closed {
		return nil, ErrClosed
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", pixel.ErrInvalidBuffer, width, height)
	}

	pitch := alignPitch(width * pixel.Gray8.BytesPerPixel())
	buf := &pixel.Buffer{
		Width:    width,
		Height:   height,
		Pitch:    pitch,
		Format:   pixel.Gray8,
		Location: pixel.Device,
		Pix:      make([]uint8, pitch*height),
	}
	m.live[buf] = len(buf.Pix)
	m.stats.LiveBuffers++
	m.stats.LiveBytes += len(buf.Pix)
	m.stats.Allocations++
	return buf, nil
}

// Upload copies host into a new device buffer row by row.
func (m *memory) Upload(host *pixel.Buffer) (*pixel.Buffer, error) {
	if host == nil || host.Location != pixel.Host {
		return nil, fmt.Errorf("%w: upload source must be in host memory", ErrLocation)
	}
	if err := host.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	buf, err := m.allocLocked(host.Width, host.Height)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	n := host.Width * host.Format.BytesPerPixel() * host.Height
	m.stats.BytesUploaded += int64(n)
	m.mu.Unlock()

	for y := 0; y < host.Height; y++ {
		copy(buf.Row(y), host.Row(y))
	}

	m.log().Debug("upload", "width", host.Width, "height", host.Height,
		"bytes", n, "pitch", buf.Pitch)
	return buf, nil
}

// Download copies a device buffer into a new tightly packed host buffer.
func (m *memory) Download(dev *pixel.Buffer) (*pixel.Buffer, error) {
	m.mu.Lock()
	if err := m.ownedLocked(dev); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	n := dev.Width * dev.Format.BytesPerPixel() * dev.Height
	m.stats.BytesDownloaded += int64(n)
	m.mu.Unlock()

	host, err := pixel.NewHost(dev.Width, dev.Height)
	if err != nil {
		return nil, err
	}
	for y := 0; y < dev.Height; y++ {
		copy(host.Row(y), dev.Row(y))
	}

	m.log().Debug("download", "width", dev.Width, "height", dev.Height, "bytes", n)
	return host, nil
}

// Free releases buf. The buffer's storage is dropped so stale use fails
// validation instead of reading freed memory.
func (m *memory) Free(buf *pixel.Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ownedLocked(buf); err != nil {
		return err
	}
	m.releaseLocked(buf)
	return nil
}

// Stats returns a snapshot of the counters.
func (m *memory) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Close frees every live buffer. Later calls are no-ops.
func (m *memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	freed := len(m.live)
	for buf := range m.live {
		m.releaseLocked(buf)
	}
	m.closed = true

	m.log().Debug("closed", "freed_buffers", freed,
		"uploaded", m.stats.BytesUploaded, "downloaded", m.stats.BytesDownloaded)
	return nil
}

// checkPair verifies that dst and src both belong to this device.
func (m *memory) checkPair(dst, src *pixel.Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ownedLocked(src); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := m.ownedLocked(dst); err != nil {
		return fmt.Errorf("destination: %w", err)
	}
	return nil
}

func (m *memory) ownedLocked(buf *pixel.Buffer) error {
	if m.closed {
		return ErrClosed
	}
	if buf == nil || buf.Location != pixel.Device {
		return fmt.Errorf("%w: buffer is not in device memory", ErrLocation)
	}
	if _, ok := m.live[buf]; !ok {
		return fmt.Errorf("%w: buffer was not allocated by %s or is already freed", ErrLocation, m.name)
	}
	return nil
}

func (m *memory) releaseLocked(buf *pixel.Buffer) {
	m.stats.LiveBuffers--
	m.stats.LiveBytes -= m.live[buf]
	delete(m.live, buf)
	buf.Pix = nil
}
