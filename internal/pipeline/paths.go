package pipeline

import (
	"path/filepath"
	"strings"
)

// DefaultInputPath is read when no input is given.
const DefaultInputPath = "grey-sloth.png"

// DefaultOutputExt is the extension of the filtered image unless one is chosen.
const DefaultOutputExt = ".png"

// outputSuffix is appended to the input's stem.
const outputSuffix = "_boxFilter"

// OutputPath derives the output file name from input: the extension of the
// last path element is replaced by "_boxFilter" plus ext. An empty ext means
// DefaultOutputExt; a missing leading dot is added.
//
//	OutputPath("img/sloth.pgm", "")     // "img/sloth_boxFilter.png"
//	OutputPath("img/sloth.pgm", "bmp")  // "img/sloth_boxFilter.bmp"
//	OutputPath("data.v2/sloth", "")     // "data.v2/sloth_boxFilter.png"
func OutputPath(input, ext string) string {
	if ext == "" {
		ext = DefaultOutputExt
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	stem := strings.TrimSuffix(input, filepath.Ext(input))
	return stem + outputSuffix + ext
}
