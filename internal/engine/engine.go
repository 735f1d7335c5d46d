// Package engine orchestrates generation requests: it renders the transcript
// from session history, dispatches to the selected backend, relays streamed
// fragments, and records the exchange in the session store.
package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tutord/internal/backend"
	"tutord/internal/prompt"
	"tutord/internal/session"
	"tutord/pkg/types"
)

// TokenCeiling is the hard cap applied to requested token budgets before
// dispatch, regardless of caller input.
const TokenCeiling = 1000

// Request describes one generation to serve.
type Request struct {
	SessionID string
	Task      prompt.Kind
	// Question is the user text rendered into the transcript.
	Question string
	// Record overrides the user-turn content written to history; when empty
	// the question (plus attached code) is recorded.
	Record string
	// Code is attached to the transcript inside a fenced block.
	Code string
	// Backend selector; empty or unknown selects the configured default.
	Backend string
	// MaxTokens requested by the caller; non-positive uses the task default.
	MaxTokens int
	// Feature, when set, is logged to the session's project record.
	Feature string
}

// Result is the outcome of a single-shot generation.
type Result struct {
	Answer  string
	Backend string
	Elapsed time.Duration
}

// Sink receives streamed delivery events in production order. Exactly one of
// Done or Error terminates the stream.
type Sink interface {
	Fragment(token, task string) error
	Done(sessionID string) error
	Error(msg string) error
}

// Engine coordinates the session store, prompt assembly and backends.
type Engine struct {
	store          *session.Store
	backends       map[string]backend.Generator
	defaultBackend string
	log            zerolog.Logger
}

// New returns an Engine dispatching to the given backends by name.
func New(store *session.Store, backends map[string]backend.Generator, defaultBackend string, log zerolog.Logger) *Engine {
	return &Engine{
		store:          store,
		backends:       backends,
		defaultBackend: defaultBackend,
		log:            log,
	}
}

// pick resolves the backend selector, falling back to the default for empty
// or unknown names.
func (e *Engine) pick(name string) backend.Generator {
	if g, ok := e.backends[name]; ok {
		return g
	}
	return e.backends[e.defaultBackend]
}

// clampTokens applies the task default and the hard ceiling.
func clampTokens(requested, taskDefault int) int {
	n := requested
	if n <= 0 {
		n = taskDefault
	}
	if n > TokenCeiling {
		n = TokenCeiling
	}
	return n
}

// recordContent is the user-turn text written to history for req.
func recordContent(req Request) string {
	if req.Record != "" {
		return req.Record
	}
	if req.Code != "" {
		return req.Question + "\n" + req.Code
	}
	return req.Question
}

// sentinelText stands in for a failed generation; it is stored and returned
// in place of model output.
func sentinelText(err error) string {
	return "Error: " + err.Error()
}

func (e *Engine) prepare(req Request) (backend.Generator, backend.Params, string) {
	gen := e.pick(req.Backend)
	spec := prompt.For(req.Task)
	params := backend.NewParams(clampTokens(req.MaxTokens, spec.MaxTokens), spec.Temperature, prompt.StopMarkers)
	history := e.store.Get(req.SessionID)
	return gen, params, prompt.Render(history, req.Task, req.Question, req.Code)
}

// Generate serves a single-shot request. Backend failures surface as
// sentinel text in the answer and are recorded in history; the returned
// error is non-nil only when the caller's context is done, in which case
// nothing was recorded.
func (e *Engine) Generate(ctx context.Context, req Request) (Result, error) {
	gen, params, transcript := e.prepare(req)
	reqID := uuid.NewString()
	e.log.Info().Str("request_id", reqID).Str("session", req.SessionID).
		Str("task", string(req.Task)).Str("backend", gen.Name()).Msg("generate start")

	start := time.Now()
	text, err := gen.Generate(ctx, transcript, params)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		status = "error"
		text = sentinelText(err)
		e.log.Warn().Str("request_id", reqID).Err(err).Msg("generation failed")
	}
	observeGeneration(gen.Name(), string(req.Task), "single", status, elapsed)

	e.store.Append(req.SessionID, session.RoleUser, string(req.Task), recordContent(req))
	e.store.Append(req.SessionID, session.RoleAssistant, "", text)
	if req.Feature != "" {
		e.store.RecordFeature(req.SessionID, req.Feature)
	}
	e.log.Info().Str("request_id", reqID).Str("status", status).Dur("dur", elapsed).Msg("generate end")
	return Result{Answer: strings.TrimSpace(text), Backend: gen.Name(), Elapsed: elapsed}, nil
}

// GenerateStream serves a streaming request, relaying fragments through sink
// as they arrive. The user turn is recorded before generation begins; the
// assistant turn is recorded only on natural completion. A backend that
// fails before producing any fragment degrades to a single sentinel fragment
// followed by a normal completion; a failure after fragments were delivered
// ends the stream with one terminal error event and no assistant turn.
func (e *Engine) GenerateStream(ctx context.Context, req Request, sink Sink) error {
	gen, params, transcript := e.prepare(req)
	reqID := uuid.NewString()
	task := string(req.Task)
	e.log.Info().Str("request_id", reqID).Str("session", req.SessionID).
		Str("task", task).Str("backend", gen.Name()).Msg("stream start")

	e.store.Append(req.SessionID, session.RoleUser, task, recordContent(req))
	if req.Feature != "" {
		e.store.RecordFeature(req.SessionID, req.Feature)
	}

	var collected strings.Builder
	fragments := 0
	start := time.Now()
	err := gen.GenerateStream(ctx, transcript, params, func(tok string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sink.Fragment(tok, task); err != nil {
			return err
		}
		fragments++
		fragmentsTotal.WithLabelValues(gen.Name()).Inc()
		collected.WriteString(tok)
		return nil
	})
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			// Caller is gone: stop relaying, skip the assistant append.
			observeGeneration(gen.Name(), task, "stream", "canceled", elapsed)
			return ctx.Err()
		}
		if fragments > 0 {
			observeGeneration(gen.Name(), task, "stream", "error", elapsed)
			e.log.Warn().Str("request_id", reqID).Err(err).Int("fragments", fragments).Msg("stream failed mid-generation")
			return sink.Error(err.Error())
		}
		sent := sentinelText(err)
		if serr := sink.Fragment(sent, task); serr != nil {
			return serr
		}
		collected.WriteString(sent)
		e.log.Warn().Str("request_id", reqID).Err(err).Msg("stream failed before first fragment")
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	observeGeneration(gen.Name(), task, "stream", status, elapsed)
	e.store.Append(req.SessionID, session.RoleAssistant, "", collected.String())
	e.log.Info().Str("request_id", reqID).Int("fragments", fragments).Dur("dur", elapsed).Msg("stream end")
	return sink.Done(req.SessionID)
}

// History returns the recorded conversation for GET /history.
func (e *Engine) History(sessionID string) types.HistoryResponse {
	turns := e.store.Get(sessionID)
	out := make([]types.Turn, 0, len(turns))
	for _, t := range turns {
		out = append(out, types.Turn{
			Role:      string(t.Role),
			Content:   t.Content,
			Task:      t.Task,
			Timestamp: t.Timestamp.Format(time.RFC3339),
		})
	}
	return types.HistoryResponse{SessionID: sessionID, MessageCount: len(out), History: out}
}

// DeleteSession removes a session's history and project record.
func (e *Engine) DeleteSession(sessionID string) {
	e.store.Delete(sessionID)
}

// Sessions summarizes the known sessions.
func (e *Engine) Sessions() types.SessionsResponse {
	ids := e.store.IDs()
	return types.SessionsResponse{
		ActiveSessions:       ids,
		TotalSessions:        len(ids),
		SessionsWithProjects: e.store.ProjectCount(),
	}
}

// Progress reports per-task interaction counts from the tags recorded on
// each turn, plus the session's project log.
func (e *Engine) Progress(sessionID string) types.ProgressResponse {
	turns := e.store.Get(sessionID)
	breakdown := map[string]int{}
	for _, k := range []prompt.Kind{prompt.KindDebug, prompt.KindReview, prompt.KindHint, prompt.KindTest, prompt.KindExplain, prompt.KindGuide, prompt.KindChat} {
		breakdown[string(k)] = 0
	}
	for _, t := range turns {
		if t.Role != session.RoleUser || t.Task == "" {
			continue
		}
		breakdown[t.Task]++
	}
	resp := types.ProgressResponse{
		SessionID:         sessionID,
		TotalInteractions: len(turns),
		TaskBreakdown:     breakdown,
		ProjectFeatures:   []types.FeatureRecord{},
	}
	if len(turns) > 0 {
		resp.LastActivity = turns[len(turns)-1].Timestamp.Format(time.RFC3339)
	}
	if p, ok := e.store.Project(sessionID); ok {
		resp.ProjectStarted = p.Started.Format(time.RFC3339)
		for _, f := range p.Features {
			resp.ProjectFeatures = append(resp.ProjectFeatures, types.FeatureRecord{
				Feature:   f.Name,
				Timestamp: f.Timestamp.Format(time.RFC3339),
			})
		}
	}
	return resp
}

// Backends reports per-backend availability for GET /models.
func (e *Engine) Backends(ctx context.Context) types.ModelsResponse {
	avail := make(map[string]types.BackendStatus, len(e.backends))
	for name, g := range e.backends {
		status := "unavailable"
		if g.Available(ctx) {
			status = "available"
		}
		avail[name] = types.BackendStatus{Status: status}
	}
	return types.ModelsResponse{AvailableModels: avail, DefaultModel: e.defaultBackend}
}

// Ready reports whether at least one backend can serve.
func (e *Engine) Ready(ctx context.Context) bool {
	for _, g := range e.backends {
		if g.Available(ctx) {
			return true
		}
	}
	return false
}
