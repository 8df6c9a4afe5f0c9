package pixel

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestNewHost(t *testing.T) {
	b, err := NewHost(7, 3)
	if err != nil {
		t.Fatalf("NewHost failed: %v", err)
	}
	if b.Pitch != 7 || len(b.Pix) != 21 {
		t.Errorf("pitch/len: got %d/%d, want 7/21", b.Pitch, len(b.Pix))
	}
	if b.Location != Host || b.Format != Gray8 {
		t.Errorf("got %v/%v, want host/gray8", b.Location, b.Format)
	}
}

func TestNewHost_InvalidSize(t *testing.T) {
	tests := []struct {
		name string
		w, h int
	}{
		{"zero width", 0, 4},
		{"zero height", 4, 0},
		{"negative", -1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHost(tt.w, tt.h)
			if !errors.Is(err, ErrInvalidBuffer) {
				t.Errorf("got %v, want ErrInvalidBuffer", err)
			}
		})
	}
}

func TestFromGray_Aliases(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 2))
	b, err := FromGray(img)
	if err != nil {
		t.Fatalf("FromGray failed: %v", err)
	}
	b.Pix[5] = 99
	if img.GrayAt(1, 1).Y != 99 {
		t.Error("FromGray copied the pixels instead of aliasing them")
	}
}

func TestFromGray_SubImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 10, 10))
	img.SetGray(3, 4, color.Gray{Y: 200})
	sub := img.SubImage(image.Rect(3, 4, 6, 8)).(*image.Gray)

	b, err := FromGray(sub)
	if err != nil {
		t.Fatalf("FromGray failed: %v", err)
	}
	if b.Width != 3 || b.Height != 4 || b.Pitch != 10 {
		t.Errorf("got %dx%d pitch %d, want 3x4 pitch 10", b.Width, b.Height, b.Pitch)
	}
	if b.Row(0)[0] != 200 {
		t.Errorf("first pixel: got %d, want 200", b.Row(0)[0])
	}
}

func TestBuffer_Gray(t *testing.T) {
	b := &Buffer{Width: 3, Height: 2, Pitch: 8, Format: Gray8, Location: Host, Pix: make([]uint8, 16)}
	b.Pix[8+2] = 42

	img, err := b.Gray()
	if err != nil {
		t.Fatalf("Gray failed: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 3, 2) {
		t.Errorf("bounds: got %v", img.Bounds())
	}
	if img.GrayAt(2, 1).Y != 42 {
		t.Errorf("pixel (2,1): got %d, want 42", img.GrayAt(2, 1).Y)
	}
}

func TestBuffer_Gray_DeviceRejected(t *testing.T) {
	b := &Buffer{Width: 1, Height: 1, Pitch: 64, Format: Gray8, Location: Device, Pix: make([]uint8, 64)}
	if _, err := b.Gray(); !errors.Is(err, ErrNotHost) {
		t.Errorf("got %v, want ErrNotHost", err)
	}
}

func TestBuffer_Validate(t *testing.T) {
	tests := []struct {
		name string
		buf  Buffer
		ok   bool
	}{
		{"packed", Buffer{Width: 4, Height: 2, Pitch: 4, Pix: make([]uint8, 8)}, true},
		{"padded rows", Buffer{Width: 4, Height: 2, Pitch: 64, Pix: make([]uint8, 68)}, true},
		{"pitch too small", Buffer{Width: 4, Height: 2, Pitch: 3, Pix: make([]uint8, 8)}, false},
		{"storage too short", Buffer{Width: 4, Height: 2, Pitch: 4, Pix: make([]uint8, 7)}, false},
		{"zero height", Buffer{Width: 4, Height: 0, Pitch: 4}, false},
		{"unknown format", Buffer{Width: 1, Height: 1, Pitch: 1, Format: Format(9), Pix: make([]uint8, 1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.buf.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidBuffer) {
				t.Errorf("got %v, want ErrInvalidBuffer", err)
			}
		})
	}
}

func TestOverlaps(t *testing.T) {
	a, _ := NewHost(4, 4)
	b, _ := NewHost(4, 4)
	view := &Buffer{Width: 2, Height: 2, Pitch: 4, Pix: a.Pix[5:]}

	if Overlaps(a, b) {
		t.Error("separate allocations reported as overlapping")
	}
	if !Overlaps(a, view) {
		t.Error("view into a not reported as overlapping")
	}
}

func TestOverlaps_SharedArray(t *testing.T) {
	arr := make([]uint8, 32)
	tests := []struct {
		name string
		a, b []uint8
		want bool
	}{
		{"capacity limited head over tail", arr[0:10:10], arr[5:20], true},
		{"tail over capacity limited head", arr[5:20], arr[0:10:10], true},
		{"adjacent halves", arr[0:10:10], arr[10:20], false},
		{"disjoint ends", arr[0:4:4], arr[28:32], false},
		{"one byte shared", arr[0:11:11], arr[10:20], true},
		{"nested", arr[0:32], arr[12:14:14], true},
		{"empty", arr[0:0], arr[0:32], false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Buffer{Width: len(tt.a), Height: 1, Pitch: len(tt.a), Pix: tt.a}
			b := &Buffer{Width: len(tt.b), Height: 1, Pitch: len(tt.b), Pix: tt.b}
			if got := Overlaps(a, b); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
