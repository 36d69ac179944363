package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/ironsheep/image-ocr-mcp/internal/ocr"
)

// ErrSuperseded is reported by a Job whose image was replaced or cleared
// before the engine finished.
var ErrSuperseded = errors.New("recognition superseded by a newer image")

// StatusInitializing is the progress status set when a recognition starts.
const StatusInitializing = "initializing"

// State is the session's lifecycle state.
type State int

const (
	StateEmpty State = iota
	StateImageLoaded
	StateRecognizing
	StateDone
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateImageLoaded:
		return "image_loaded"
	case StateRecognizing:
		return "recognizing"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Handle is an image reference the session owns and must release.
type Handle interface {
	ocr.Image
	Release() error
}

// Allocator creates handles for selected images.
type Allocator interface {
	Allocate(data []byte) Handle
}

// AllocatorFunc adapts a function to Allocator.
type AllocatorFunc func(data []byte) Handle

// Allocate implements Allocator.
func (f AllocatorFunc) Allocate(data []byte) Handle { return f(data) }

// Progress is the latest numeric progress reported by the engine.
type Progress struct {
	Status   string  `json:"status"`
	Fraction float64 `json:"fraction"`
}

// Snapshot is a point-in-time copy of the session.
type Snapshot struct {
	State      State     `json:"state"`
	ImageID    string    `json:"image_id,omitempty"`
	Text       string    `json:"text"`
	Running    bool      `json:"running"`
	Progress   *Progress `json:"progress,omitempty"`
	Generation uint64    `json:"generation"`

	// LastError is the failure of the most recent recognition of the current
	// image, if it failed.
	LastError string `json:"last_error,omitempty"`
}

// Job is one recognition call.
type Job struct {
	generation uint64
	imageID    string
	cancel     context.CancelFunc
	done       chan struct{}

	// set before done is closed
	result *ocr.Result
	err    error
}

// Generation returns the image generation the job was started for.
func (j *Job) Generation() uint64 { return j.generation }

// ImageID returns the ID of the handle being recognized.
func (j *Job) ImageID() string { return j.imageID }

// Done is closed when the engine call has returned and its outcome applied.
func (j *Job) Done() <-chan struct{} { return j.done }

// Err returns the job's error once Done is closed, nil before.
func (j *Job) Err() error {
	select {
	case <-j.done:
		return j.err
	default:
		return nil
	}
}

// Wait blocks until the job finishes or ctx is done. A ctx error does not
// affect the job, which keeps running.
func (j *Job) Wait(ctx context.Context) (*ocr.Result, error) {
	select {
	case <-j.done:
		return j.result, j.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (j *Job) complete(result *ocr.Result, err error) {
	j.result = result
	j.err = err
	close(j.done)
}
