package imaging

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/disintegration/imaging"
	pnm "github.com/jbuchbinder/gopnm" // PGM encoder; also registers the PBM/PGM/PPM decoders
	_ "golang.org/x/image/bmp"         // Register BMP format decoder
	_ "golang.org/x/image/tiff"        // Register TIFF format decoder
	_ "golang.org/x/image/webp"        // Register WebP format decoder
)

var (
	// ErrFileNotFound means the input path does not exist or cannot be read.
	ErrFileNotFound = errors.New("file not found")

	// ErrUnsupportedFormat means the data matches no registered decoder or
	// holds a color encoding that cannot be reduced to grayscale.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrEncode means the output could not be encoded or written.
	ErrEncode = errors.New("encode failed")

	// ErrCodecsClosed means a Codecs context was used after Close.
	ErrCodecsClosed = errors.New("codec context closed")
)

// encoder writes an image in one lossless format.
type encoder struct {
	name   string
	encode func(w io.Writer, img image.Image) error
}

// Codecs is the process-wide codec context.
//
// It owns the encoder table and tracks open file handles. Codecs is safe for
// concurrent use; Close may be called any number of times.
type Codecs struct {
	mu       sync.RWMutex
	closed   bool
	encoders map[string]encoder // keyed by lower-case extension without the dot
	decoders map[string]string  // image.Decode format name -> short codec name

	openFiles atomic.Int64
}

// OpenCodecs acquires a codec context. Release it with Close.
//
//	codecs := imaging.OpenCodecs()
//	defer codecs.Close()
func OpenCodecs() *Codecs {
	c := &Codecs{
		encoders: make(map[string]encoder),
		decoders: make(map[string]string),
	}

	for _, name := range []string{"png", "gif", "jpeg", "bmp", "tiff", "webp"} {
		c.decoders[name] = name
	}
	// gopnm registers one format per variant and encoding.
	for _, name := range []string{
		"pbm ascii (black and white)", "pbm raw (black and white)",
		"pgm ascii (grayscale)", "pgm raw (grayscale)",
		"ppm ascii (rgb)", "ppm raw (rgb)",
	} {
		c.decoders[name] = name[:3]
	}

	for _, ext := range []string{"png", "bmp", "tif", "tiff"} {
		f, err := imaging.FormatFromExtension(ext)
		if err != nil {
			continue
		}
		c.encoders[ext] = encoder{
			name: strings.ToLower(f.String()),
			encode: func(w io.Writer, img image.Image) error {
				return imaging.Encode(w, img, f)
			},
		}
	}
	c.encoders["pgm"] = encoder{
		name: "pgm",
		encode: func(w io.Writer, img image.Image) error {
			return pnm.Encode(w, img, pnm.PGM)
		},
	}

	return c
}

// Close releases the context. Subsequent Load and Save calls fail.
func (c *Codecs) Close() error {
	c.mu.Lock()
	c.closed = true
	c.encoders = nil
	c.decoders = nil
	c.mu.Unlock()
	return nil
}

// OpenFiles returns the number of file handles currently held by the context.
func (c *Codecs) OpenFiles() int {
	return int(c.openFiles.Load())
}

// Extensions lists the output extensions that have a lossless encoder.
func (c *Codecs) Extensions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	exts := make([]string, 0, len(c.encoders))
	for ext := range c.encoders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// lossyExts are recognized output extensions that are refused because their
// codecs would alter pixel values.
var lossyExts = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
	"webp": true,
}

// encoderFor picks the encoder for path from its extension.
func (c *Codecs) encoderFor(path string) (encoder, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return encoder{}, ErrCodecsClosed
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if enc, ok := c.encoders[ext]; ok {
		return enc, nil
	}
	switch {
	case ext == "":
		return encoder{}, fmt.Errorf("%w: no file extension", ErrEncode)
	case lossyExts[ext]:
		return encoder{}, fmt.Errorf("%w: .%s is a lossy format", ErrEncode, ext)
	}
	return encoder{}, fmt.Errorf("%w: unsupported extension .%s", ErrEncode, ext)
}

// decoderName maps the format name reported by image.Decode to the short
// codec name. Unlisted names keep their first word, so a decoder registered
// as "pgm raw (grayscale)" still reports "pgm".
func (c *Codecs) decoderName(raw string) string {
	c.mu.RLock()
	name, ok := c.decoders[raw]
	c.mu.RUnlock()
	if ok {
		return name
	}
	if i := strings.IndexByte(raw, ' '); i > 0 {
		raw = raw[:i]
	}
	return strings.ToLower(raw)
}

func (c *Codecs) checkOpen() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrCodecsClosed
	}
	return nil
}

// formatFromExtension guesses a format name from a file name. It is only used
// to make error messages more specific; decoding trusts the signature.
func formatFromExtension(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".gif":
		return "gif"
	case ".bmp":
		return "bmp"
	case ".tif", ".tiff":
		return "tiff"
	case ".webp":
		return "webp"
	case ".pbm", ".pgm", ".ppm", ".pnm":
		return "pnm"
	}
	return ""
}
