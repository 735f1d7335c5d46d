package backend

import (
	"context"

	"github.com/rs/zerolog"
)

// localWorkers bounds concurrent CPU-bound executor calls. Requests beyond
// capacity queue on the slot channel.
const localWorkers = 2

// modelRunner is the in-process executor surface. The real implementation
// lives behind the 'llama' build tag; default builds get a stub that fails
// to load.
type modelRunner interface {
	// Predict blocks until generation completes, calling onToken per fragment
	// when non-nil, and returns the full continuation.
	Predict(ctx context.Context, prompt string, p Params, onToken func(string) error) (string, error)
	Close() error
}

// Local wraps the in-process model executor. The model is loaded once at
// construction; a failed load leaves the backend permanently unavailable
// rather than failing the process.
type Local struct {
	runner  modelRunner
	loadErr error
	slots   chan struct{}
	log     zerolog.Logger
}

// NewLocal loads the model at modelPath with a fixed context size and thread
// count.
func NewLocal(modelPath string, ctxSize, threads int, log zerolog.Logger) *Local {
	l := &Local{
		slots: make(chan struct{}, localWorkers),
		log:   log,
	}
	runner, err := loadModel(modelPath, ctxSize, threads)
	if err != nil {
		l.loadErr = err
		log.Warn().Err(err).Str("model_path", modelPath).Msg("local model not loaded")
		return l
	}
	l.runner = runner
	log.Info().Str("model_path", modelPath).Int("ctx_size", ctxSize).Int("threads", threads).Msg("local model loaded")
	return l
}

func (l *Local) Name() string { return "local" }

func (l *Local) Available(ctx context.Context) bool { return l.runner != nil }

// Close releases the loaded model, if any.
func (l *Local) Close() error {
	if l.runner == nil {
		return nil
	}
	return l.runner.Close()
}

func (l *Local) Generate(ctx context.Context, prompt string, p Params) (string, error) {
	return l.run(ctx, prompt, p, nil)
}

func (l *Local) GenerateStream(ctx context.Context, prompt string, p Params, onFragment func(string) error) error {
	_, err := l.run(ctx, prompt, p, onFragment)
	return err
}

// run acquires a worker slot and drives the executor. The slot is held for
// the full duration of the blocking call; there is deliberately no timeout.
func (l *Local) run(ctx context.Context, prompt string, p Params, onToken func(string) error) (string, error) {
	if l.runner == nil {
		return "", ErrUnavailable("local model not loaded")
	}
	select {
	case l.slots <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-l.slots }()
	return l.runner.Predict(ctx, prompt, p, onToken)
}
