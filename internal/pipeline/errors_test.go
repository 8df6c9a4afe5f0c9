package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/ironsheep/boxfilter/internal/device"
	"github.com/ironsheep/boxfilter/internal/filter"
	"github.com/ironsheep/boxfilter/internal/imaging"
)

func TestError_Message(t *testing.T) {
	err := newError(StageLoad, "in.png", fmt.Errorf("%w: %w", imaging.ErrFileNotFound, os.ErrNotExist))
	if got, want := err.Error(), "load in.png: file not found: file does not exist"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	noPath := newError(StageValidate, "", fmt.Errorf("%w: mask 0x5", filter.ErrInvalidKernel))
	if got, want := noPath.Error(), "validate: invalid kernel: mask 0x5"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestError_MatchesKindAndCause(t *testing.T) {
	err := error(newError(StageLoad, "in.png", fmt.Errorf("%w: %w", imaging.ErrFileNotFound, os.ErrNotExist)))
	if !errors.Is(err, ErrFileNotFound) {
		t.Error("errors.Is should match the kind")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("errors.Is should match the cause")
	}
	if errors.Is(err, ErrEncode) {
		t.Error("errors.Is matched an unrelated kind")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"file not found", fmt.Errorf("open: %w", imaging.ErrFileNotFound), ErrFileNotFound},
		{"unsupported", imaging.ErrUnsupportedFormat, ErrUnsupportedFormat},
		{"kernel", filter.Kernel{}.Validate(), ErrInvalidKernel},
		{"encode", fmt.Errorf("%w: disk full", imaging.ErrEncode), ErrEncode},
		{"mismatch", filter.ErrMismatch, ErrUnexpected},
		{"closed codecs", imaging.ErrCodecsClosed, ErrUnexpected},
		{"device", device.ErrLocation, ErrUnexpected},
		{"cancelled", context.Canceled, ErrUnexpected},
		{"plain", errors.New("boom"), ErrUnexpected},
		{"wrapped pipeline error", fmt.Errorf("run: %w", newError(StageSave, "x", imaging.ErrEncode)), ErrEncode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{errors.New("boom"), 1},
		{imaging.ErrFileNotFound, 2},
		{imaging.ErrUnsupportedFormat, 3},
		{filter.ErrInvalidKernel, 4},
		{imaging.ErrEncode, 5},
		{imaging.ErrCodecsClosed, 1},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v): got %d, want %d", tt.err, got, tt.want)
		}
	}
}
