//go:build llama

package backend

import (
	"context"
	"errors"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaRunner owns the loaded model. All calls are serialized through the
// Local worker slots, not a mutex.
type llamaRunner struct {
	model   *llama.LLama
	threads int
}

// loadModel initializes the in-process llama.cpp model once at startup.
func loadModel(path string, ctxSize, threads int) (modelRunner, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("model path is empty")
	}
	m, err := llama.New(path, llama.SetContext(ctxSize))
	if err != nil {
		return nil, err
	}
	return &llamaRunner{model: m, threads: threads}, nil
}

func (r *llamaRunner) Predict(ctx context.Context, prompt string, p Params, onToken func(string) error) (string, error) {
	if r.model == nil {
		return "", errors.New("llama model not initialized")
	}
	// Bridge token streaming to onToken and respect cancellation.
	r.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		if onToken != nil {
			if err := onToken(tok); err != nil {
				return false
			}
		}
		return true
	})
	text, err := r.model.Predict(prompt, predictOptions(p, r.threads)...)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	return text, nil
}

func (r *llamaRunner) Close() error {
	if r.model != nil {
		r.model.Free()
		r.model = nil
	}
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// predictOptions converts Params into go-llama.cpp options.
func predictOptions(p Params, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(maxInt(1, p.MaxTokens)),
		llama.SetThreads(maxInt(1, threads)),
		llama.SetTopP(float32(p.TopP)),
		llama.SetTopK(p.TopK),
		llama.SetTemperature(float32(p.Temperature)),
		llama.SetPenalty(float32(p.RepeatPenalty)),
	}
	if len(p.Stop) > 0 {
		po = append(po, llama.SetStopWords(p.Stop...))
	}
	return po
}
