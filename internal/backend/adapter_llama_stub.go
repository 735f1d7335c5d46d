//go:build !llama

package backend

// This file provides a no-CGO stub for the llama executor. It is compiled
// when the 'llama' build tag is NOT set, keeping default builds and CI
// CGO-free. The real executor lives in adapter_llama.go (tagged 'llama').

// loadModel fails fast: the llama runtime is not available in this build.
// The Local backend then reports itself unavailable instead of mocking
// generation.
func loadModel(path string, ctxSize, threads int) (modelRunner, error) {
	return nil, ErrUnavailable("llama support not built (missing 'llama' build tag)")
}
