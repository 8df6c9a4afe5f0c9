package pipeline

import (
	"errors"
	"fmt"

	"github.com/ironsheep/boxfilter/internal/filter"
	"github.com/ironsheep/boxfilter/internal/imaging"
)

// ErrUnexpected classifies failures that fit no other kind: device errors,
// buffer mismatches, a closed codec context, cancellation.
var ErrUnexpected = errors.New("unexpected error")

// Error kinds re-exported for callers that only import this package.
var (
	ErrFileNotFound      = imaging.ErrFileNotFound
	ErrUnsupportedFormat = imaging.ErrUnsupportedFormat
	ErrInvalidKernel     = filter.ErrInvalidKernel
	ErrEncode            = imaging.ErrEncode
)

// Stage names a step of the pipeline.
type Stage string

const (
	StageValidate Stage = "validate"
	StageLoad     Stage = "load"
	StageConvert  Stage = "convert"
	StageUpload   Stage = "upload"
	StageFilter   Stage = "filter"
	StageDownload Stage = "download"
	StageSave     Stage = "save"
)

// Error reports the stage that failed, the file it was working on and the
// error kind. errors.Is matches both Kind and the underlying cause.
type Error struct {
	Stage Stage
	Path  string
	Kind  error
	Err   error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Path, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func newError(stage Stage, path string, err error) *Error {
	return &Error{Stage: stage, Path: path, Kind: classify(err), Err: err}
}

// KindOf returns the error kind of err, or nil for a nil error.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return classify(err)
}

func classify(err error) error {
	for _, kind := range []error{ErrFileNotFound, ErrUnsupportedFormat, ErrInvalidKernel, ErrEncode} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrUnexpected
}

// Process exit codes.
const (
	ExitOK                = 0
	ExitUnexpected        = 1
	ExitFileNotFound      = 2
	ExitUnsupportedFormat = 3
	ExitInvalidKernel     = 4
	ExitEncode            = 5
)

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	switch KindOf(err) {
	case nil:
		return ExitOK
	case ErrFileNotFound:
		return ExitFileNotFound
	case ErrUnsupportedFormat:
		return ExitUnsupportedFormat
	case ErrInvalidKernel:
		return ExitInvalidKernel
	case ErrEncode:
		return ExitEncode
	}
	return ExitUnexpected
}
