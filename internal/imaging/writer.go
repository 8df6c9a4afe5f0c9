package imaging

import (
	"bufio"
	"fmt"
	"image"
	"os"
	"path/filepath"
)

// Save encodes img to path with the lossless codec named by the extension
// and returns the codec name.
//
// The data is written to a temporary file in the destination directory and
// renamed over path once complete, so a failed write never leaves a partial
// image behind.
//
// # Errors
//
//   - ErrEncode for extensions without a lossless encoder (including lossy
//     formats such as .jpg) and for any create, write or rename failure
//   - ErrCodecsClosed if the context has been released
func (c *Codecs) Save(img image.Image, path string) (format string, err error) {
	enc, err := c.encoderFor(path)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncode, err)
	}
	c.openFiles.Add(1)

	closed := false
	defer func() {
		if !closed {
			tmp.Close()
		}
		c.openFiles.Add(-1)
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	if err := enc.encode(w, img); err != nil {
		return "", fmt.Errorf("%w: %s encoder: %w", ErrEncode, enc.name, err)
	}
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncode, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncode, err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncode, err)
	}
	closed = true
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncode, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncode, err)
	}

	return enc.name, nil
}
