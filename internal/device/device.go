// Package device models the compute devices that run the box filter.
//
// A device owns its own memory. Host pixels reach it only through Upload and
// come back only through Download, so every transfer is explicit and
// countable. Two devices are built in:
//
//   - "cpu" filters sequentially on the calling goroutine.
//   - "parallel" splits the image into row bands and filters them
//     concurrently, bounded by GOMAXPROCS.
//
// Both produce identical output for the same input and kernel.
//
// Devices are opened by name through a registry:
//
//	dev, err := device.Open("parallel")
//	if err != nil {
//	    return err
//	}
//	defer dev.Close()
package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/ironsheep/boxfilter/internal/filter"
	"github.com/ironsheep/boxfilter/internal/pixel"
)

var (
	// ErrLocation is returned when a buffer is passed to an operation that
	// needs it in a different memory, or it was not allocated by this device.
	ErrLocation = errors.New("device: buffer in wrong location")

	// ErrClosed is returned by every operation on a closed device.
	ErrClosed = errors.New("device: closed")

	// ErrUnknownDevice is returned by Open for unregistered names.
	ErrUnknownDevice = errors.New("device: unknown device")
)

// Device runs the box filter on memory it owns.
type Device interface {
	// Name returns the registry name of the device.
	Name() string

	// Alloc reserves an uninitialized Gray8 buffer in device memory.
	Alloc(width, height int) (*pixel.Buffer, error)

	// Upload copies a host buffer into a new device buffer.
	Upload(host *pixel.Buffer) (*pixel.Buffer, error)

	// Download copies a device buffer into a new, tightly packed host buffer.
	Download(dev *pixel.Buffer) (*pixel.Buffer, error)

	// BoxFilter filters src into dst. Both must be buffers of this device.
	BoxFilter(ctx context.Context, dst, src *pixel.Buffer, k filter.Kernel) error

	// Free releases a device buffer. Freeing a buffer twice is an error.
	Free(buf *pixel.Buffer) error

	// Stats reports allocation and transfer counters.
	Stats() Stats

	// Close frees all outstanding buffers. It is safe to call more than once.
	Close() error
}

// Stats counts device memory use and host transfers.
type Stats struct {
	LiveBuffers     int   `json:"live_buffers"`     // allocated and not yet freed
	LiveBytes       int   `json:"live_bytes"`       // storage held by live buffers, including padding
	Allocations     int   `json:"allocations"`      // total Alloc and Upload calls that succeeded
	BytesUploaded   int64 `json:"bytes_uploaded"`   // visible pixel bytes copied host to device
	BytesDownloaded int64 `json:"bytes_downloaded"` // visible pixel bytes copied device to host
}

// Factory creates a ready-to-use device.
type Factory func() (Device, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a device available to Open under name. Registering a name
// again replaces the previous factory.
func Register(name string, f Factory) error {
	if name == "" {
		return errors.New("device: name must not be empty")
	}
	if f == nil {
		return errors.New("device: factory must not be nil")
	}
	registryMu.Lock()
	registry[name] = f
	registryMu.Unlock()
	return nil
}

// Open creates a device by name.
func Open(name string) (Device, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %v)", ErrUnknownDevice, name, Names())
	}
	return f()
}

// Names lists registered devices in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register(CPUName, func() (Device, error) { return NewCPU(), nil })
	Register(ParallelName, func() (Device, error) { return NewParallel(0), nil })
}

// loggerSetter is implemented by devices that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// SetLogger passes l to d if the device supports logging. A nil logger
// silences the device.
func SetLogger(d Device, l *slog.Logger) {
	if ls, ok := d.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}
