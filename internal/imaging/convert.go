package imaging

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/parallel"
	"github.com/lucasb-eyer/go-colorful"
)

// GrayMethod selects how color pixels are reduced to a single luminance value.
type GrayMethod int

const (
	// Rec709 weights channels 0.2126 R + 0.7152 G + 0.0722 B.
	Rec709 GrayMethod = iota
	// BT601 weights channels 0.299 R + 0.587 G + 0.114 B.
	BT601
	// Lightness uses CIE L* scaled to 0-255.
	Lightness
)

func (m GrayMethod) String() string {
	switch m {
	case Rec709:
		return "rec709"
	case BT601:
		return "bt601"
	case Lightness:
		return "lightness"
	}
	return fmt.Sprintf("GrayMethod(%d)", int(m))
}

// ParseGrayMethod parses the names printed by GrayMethod.String.
func ParseGrayMethod(s string) (GrayMethod, error) {
	switch strings.ToLower(s) {
	case "rec709", "":
		return Rec709, nil
	case "bt601":
		return BT601, nil
	case "lightness":
		return Lightness, nil
	}
	return 0, fmt.Errorf("unknown grayscale method %q (want rec709, bt601 or lightness)", s)
}

// EncodingOf names the color encoding of img.
func EncodingOf(img image.Image) string {
	switch img.(type) {
	case *image.Gray:
		return "gray"
	case *image.Gray16:
		return "gray16"
	case *image.RGBA:
		return "rgba"
	case *image.RGBA64:
		return "rgba64"
	case *image.NRGBA:
		return "nrgba"
	case *image.NRGBA64:
		return "nrgba64"
	case *image.Paletted:
		return "paletted"
	case *image.YCbCr:
		return "ycbcr"
	case *image.NYCbCrA:
		return "nycbcra"
	case *image.CMYK:
		return "cmyk"
	case *image.Alpha:
		return "alpha"
	case *image.Alpha16:
		return "alpha16"
	}
	return fmt.Sprintf("%T", img)
}

// ToGray returns img as 8-bit grayscale with the same width and height.
//
// An *image.Gray is returned unchanged: the result is the same value, and the
// caller takes over ownership. All other results are freshly allocated with
// their origin at (0,0).
//
// # Errors
//
// Returns ErrUnsupportedFormat for empty images and for color encodings other
// than the standard library's image types.
func ToGray(img image.Image, m GrayMethod) (*image.Gray, error) {
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: image has no pixels", ErrUnsupportedFormat)
	}

	switch src := img.(type) {
	case *image.Gray:
		return src, nil
	case *image.Gray16:
		return gray16ToGray(src), nil
	case *image.RGBA, *image.RGBA64, *image.NRGBA, *image.NRGBA64, *image.Paletted,
		*image.YCbCr, *image.NYCbCrA, *image.CMYK, *image.Alpha, *image.Alpha16:
	default:
		return nil, fmt.Errorf("%w: cannot convert %s encoding to grayscale", ErrUnsupportedFormat, EncodingOf(img))
	}

	switch m {
	case Rec709:
		return weightedGray(img, 0.2126, 0.7152, 0.0722), nil
	case BT601:
		return weightedGray(img, 0.299, 0.587, 0.114), nil
	case Lightness:
		return lightnessGray(img), nil
	}
	return nil, fmt.Errorf("%w: grayscale method %v", ErrUnsupportedFormat, m)
}

// gray16ToGray keeps the high byte of each 16-bit sample.
func gray16ToGray(src *image.Gray16) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.Pix[y*dst.Stride+x] = uint8(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y >> 8)
		}
	}
	return dst
}

// weightedGray reduces img with bild's weighted grayscale effect, which
// rounds half up, and keeps one channel of its RGBA result.
func weightedGray(img image.Image, r, g, b float64) *image.Gray {
	rgba := effect.GrayscaleWithWeights(img, r, g, b)
	bounds := rgba.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	dst := image.NewGray(image.Rect(0, 0, w, h))
	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			src := rgba.Pix[y*rgba.Stride:]
			row := dst.Pix[y*dst.Stride : y*dst.Stride+w]
			for x := range row {
				row[x] = src[x*4]
			}
		}
	})
	return dst
}

// lightnessGray maps each pixel to its CIE L* value. Fully transparent pixels
// have no defined color and become black.
func lightnessGray(img image.Image) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	dst := image.NewGray(image.Rect(0, 0, w, h))
	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < w; x++ {
				c, ok := colorful.MakeColor(img.At(b.Min.X+x, b.Min.Y+y))
				if !ok {
					continue
				}
				l, _, _ := c.Lab()
				dst.Pix[y*dst.Stride+x] = uint8(math.Max(0, math.Min(255, math.Round(l*255))))
			}
		}
	})
	return dst
}
