package imaging

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"os"
)

// Decoded is an image read from disk together with what is known about it.
type Decoded struct {
	// Image is the decoded pixel data in its native color encoding.
	Image image.Image

	// Format is the name of the decoder that recognized the file signature,
	// e.g. "png", "bmp" or "pgm".
	Format string

	// Encoding names the native color encoding, see EncodingOf.
	Encoding string

	// Info describes the image dimensions and file.
	Info ImageInfo
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int

	// Height is the image height in pixels.
	Height int

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string

	// HasAlpha indicates whether the encoding carries an alpha channel.
	HasAlpha bool

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64
}

// Load reads and decodes the image at path.
//
// The format is detected from the file signature. The extension only serves
// to make the error more specific when no decoder matches.
//
// # Errors
//
//   - ErrFileNotFound if the path does not exist, is a directory, or cannot be opened
//   - ErrUnsupportedFormat if no decoder recognizes the data or decoding fails
//   - ErrCodecsClosed if the context has been released
func (c *Codecs) Load(path string) (*Decoded, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileNotFound, err)
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrFileNotFound, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileNotFound, err)
	}
	c.openFiles.Add(1)
	defer func() {
		f.Close()
		c.openFiles.Add(-1)
	}()

	img, raw, err := image.Decode(bufio.NewReader(f))
	format := c.decoderName(raw)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			if guess := formatFromExtension(path); guess != "" {
				return nil, fmt.Errorf("%w: file signature is not %s as its extension suggests", ErrUnsupportedFormat, guess)
			}
			return nil, fmt.Errorf("%w: unrecognized file signature", ErrUnsupportedFormat)
		}
		return nil, fmt.Errorf("%w: failed to decode %s data: %w", ErrUnsupportedFormat, format, err)
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: image has no pixels", ErrUnsupportedFormat)
	}

	hasAlpha, colorDepth := false, "8-bit"
	switch img.(type) {
	case *image.RGBA, *image.NRGBA, *image.NYCbCrA, *image.Alpha:
		hasAlpha = true
	case *image.RGBA64, *image.NRGBA64, *image.Alpha16:
		hasAlpha = true
		colorDepth = "16-bit"
	case *image.Gray16:
		colorDepth = "16-bit"
	}

	return &Decoded{
		Image:    img,
		Format:   format,
		Encoding: EncodingOf(img),
		Info: ImageInfo{
			Width:         bounds.Dx(),
			Height:        bounds.Dy(),
			ColorDepth:    colorDepth,
			HasAlpha:      hasAlpha,
			FileSizeBytes: stat.Size(),
		},
	}, nil
}
