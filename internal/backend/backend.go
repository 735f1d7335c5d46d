// Package backend provides interchangeable text-generation engines: an
// in-process llama.cpp model and a remote Ollama server. Both expose the same
// single-shot and streaming contract.
//
// The local executor has no per-call timeout; a hung generation occupies one
// of its worker slots until the process exits. Known resource-exhaustion
// risk, kept to match the behavior of the system this replaces.
package backend

import "context"

// Sampling defaults applied to every generation.
const (
	DefaultTopP          = 0.95
	DefaultTopK          = 40
	DefaultRepeatPenalty = 1.15
)

// Params captures generation parameters for one call.
type Params struct {
	MaxTokens     int
	Temperature   float64
	TopP          float64
	TopK          int
	RepeatPenalty float64
	// Stop sequences ending generation at a turn boundary.
	Stop []string
}

// NewParams returns Params with the shared sampling defaults and the given
// stop markers.
func NewParams(maxTokens int, temperature float64, stop []string) Params {
	return Params{
		MaxTokens:     maxTokens,
		Temperature:   temperature,
		TopP:          DefaultTopP,
		TopK:          DefaultTopK,
		RepeatPenalty: DefaultRepeatPenalty,
		Stop:          stop,
	}
}

// Generator is the capability shared by all backends. Implementations return
// errors rather than panicking; callers decide how failures surface.
type Generator interface {
	// Name returns the backend selector value, e.g. "local".
	Name() string
	// Available reports whether the backend can currently serve requests.
	Available(ctx context.Context) bool
	// Generate returns the model's continuation of prompt.
	Generate(ctx context.Context, prompt string, p Params) (string, error)
	// GenerateStream invokes onFragment for each produced fragment, verbatim
	// and in order, returning once generation completes or fails. A non-nil
	// error from onFragment stops generation.
	GenerateStream(ctx context.Context, prompt string, p Params, onFragment func(string) error) error
}

// unavailableError signals a backend that cannot serve at all (model never
// loaded, remote unreachable).
type unavailableError struct{ msg string }

func (e unavailableError) Error() string { return e.msg }

// ErrUnavailable constructs an unavailableError.
func ErrUnavailable(msg string) error { return unavailableError{msg: msg} }

// IsUnavailable reports whether err indicates an unusable backend.
func IsUnavailable(err error) bool {
	_, ok := err.(unavailableError)
	return ok
}
