package pipeline

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/depthmesh/depth"
	"go.viam.com/depthmesh/presentation"
	"go.viam.com/depthmesh/rimage"
	"go.viam.com/depthmesh/spatialmath"
)

// Error kinds. Every error returned by a Generator is an *Error whose Kind is
// one of these, so callers can branch with errors.Is.
var (
	// ErrInvalidInput covers missing, unreadable, undecodable, unsupported
	// or too small images.
	ErrInvalidInput = errors.New("invalid input")
	// ErrModelInference covers model load and inference failures and model
	// output that cannot be used.
	ErrModelInference = errors.New("model inference failed")
	// ErrDegenerateGeometry is returned when the point cloud has no volume.
	ErrDegenerateGeometry = errors.New("degenerate geometry")
	// ErrIO covers failures writing outputs.
	ErrIO = errors.New("i/o failure")
	// ErrRunInProgress is returned when a run is requested while another
	// is active and runs are not queued.
	ErrRunInProgress = errors.New("a run is already in progress")
	// ErrCanceled is returned when the run's context ends before it finishes.
	ErrCanceled = errors.New("run canceled")
)

// Error is a pipeline failure tagged with its kind and the stage it hit.
type Error struct {
	Kind  error
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Stage != "" {
		msg = string(e.Stage) + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// classify tags err with the kind it belongs to.
func classify(stage Stage, err error) error {
	var pErr *Error
	if errors.As(err, &pErr) {
		return err
	}
	var infErr *depth.InferenceError
	var kind error
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		kind = ErrCanceled
	case errors.As(err, &infErr),
		errors.Is(err, rimage.ErrNonPositiveMax),
		errors.Is(err, rimage.ErrNegativeDepth):
		kind = ErrModelInference
	case errors.Is(err, rimage.ErrUnsupportedFormat),
		errors.Is(err, rimage.ErrDecode),
		errors.Is(err, rimage.ErrImageTooSmall):
		kind = ErrInvalidInput
	case errors.Is(err, spatialmath.ErrDegenerateGeometry):
		kind = ErrDegenerateGeometry
	case errors.Is(err, presentation.ErrExport):
		kind = ErrIO
	default:
		kind = stageKinds[stage]
	}
	return &Error{Kind: kind, Stage: stage, Err: err}
}

var stageKinds = map[Stage]error{
	StageRead:       ErrInvalidInput,
	StageEstimate:   ErrModelInference,
	StagePointCloud: ErrModelInference,
	StageHull:       ErrDegenerateGeometry,
	StageExport:     ErrIO,
}
