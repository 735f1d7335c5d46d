package backend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// remoteTimeout bounds one full generation call against the remote server.
	remoteTimeout = 120 * time.Second
	// probeTimeout bounds the availability check.
	probeTimeout = 2 * time.Second
)

// Remote wraps an Ollama-compatible HTTP inference server.
type Remote struct {
	baseURL string
	model   string
	client  *http.Client
	probe   *http.Client
	log     zerolog.Logger
}

// NewRemote returns a Remote for the server at baseURL serving the named
// model.
func NewRemote(baseURL, model string, log zerolog.Logger) *Remote {
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: remoteTimeout},
		probe:   &http.Client{Timeout: probeTimeout},
		log:     log,
	}
}

func (r *Remote) Name() string { return "remote" }

// Available probes the server's tag listing.
func (r *Remote) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := r.probe.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode/100 == 2
}

// generatePayload is the /api/generate request body.
type generatePayload struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	NumPredict    int      `json:"num_predict"`
	Temperature   float64  `json:"temperature"`
	TopP          float64  `json:"top_p"`
	TopK          int      `json:"top_k"`
	RepeatPenalty float64  `json:"repeat_penalty"`
	Stop          []string `json:"stop"`
}

// generateEvent is one line of an /api/generate response. The same shape
// serves the buffered single-shot reply and each streamed NDJSON line.
type generateEvent struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (r *Remote) post(ctx context.Context, prompt string, p Params, stream bool) (*http.Response, error) {
	body, err := json.Marshal(generatePayload{
		Model:  r.model,
		Prompt: prompt,
		Stream: stream,
		Options: generateOptions{
			NumPredict:    p.MaxTokens,
			Temperature:   p.Temperature,
			TopP:          p.TopP,
			TopK:          p.TopK,
			RepeatPenalty: p.RepeatPenalty,
			Stop:          p.Stop,
		},
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, ErrUnavailable(fmt.Sprintf("remote backend: %v", err))
	}
	if resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("remote backend: http %d", resp.StatusCode)
	}
	return resp, nil
}

func (r *Remote) Generate(ctx context.Context, prompt string, p Params) (string, error) {
	resp, err := r.post(ctx, prompt, p, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	var ev generateEvent
	if err := json.NewDecoder(resp.Body).Decode(&ev); err != nil {
		return "", fmt.Errorf("remote backend: decode response: %w", err)
	}
	return ev.Response, nil
}

// GenerateStream relays the response text of each NDJSON line in order.
// Lines that fail to parse are skipped, favoring delivery of the remaining
// fragments over strict validation.
func (r *Remote) GenerateStream(ctx context.Context, prompt string, p Params, onFragment func(string) error) error {
	resp, err := r.post(ctx, prompt, p, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var ev generateEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			r.log.Debug().Msg("skipping malformed stream line")
			continue
		}
		if ev.Response != "" {
			if err := onFragment(ev.Response); err != nil {
				return err
			}
		}
	}
	if err := sc.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("remote backend: stream read: %w", err)
	}
	return nil
}
