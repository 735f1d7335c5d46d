package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tutord/internal/engine"
	"tutord/pkg/types"
)

type mockService struct {
	answer    string
	fragments []string
	streamErr error
	lastReq   *engine.Request
	deleted   []string
	sessions  types.SessionsResponse
	progress  types.ProgressResponse
	models    types.ModelsResponse
	ready     bool
}

func (m *mockService) Generate(ctx context.Context, req engine.Request) (engine.Result, error) {
	m.lastReq = &req
	return engine.Result{Answer: m.answer, Backend: "local", Elapsed: 40 * time.Millisecond}, nil
}

func (m *mockService) GenerateStream(ctx context.Context, req engine.Request, sink engine.Sink) error {
	m.lastReq = &req
	for _, f := range m.fragments {
		if err := sink.Fragment(f, string(req.Task)); err != nil {
			return err
		}
	}
	if m.streamErr != nil {
		return sink.Error(m.streamErr.Error())
	}
	return sink.Done(req.SessionID)
}

func (m *mockService) History(sessionID string) types.HistoryResponse {
	return types.HistoryResponse{SessionID: sessionID, MessageCount: 2, History: []types.Turn{
		{Role: "user", Content: "q", Task: "debug"},
		{Role: "assistant", Content: "a"},
	}}
}
func (m *mockService) DeleteSession(sessionID string)            { m.deleted = append(m.deleted, sessionID) }
func (m *mockService) Sessions() types.SessionsResponse          { return m.sessions }
func (m *mockService) Progress(id string) types.ProgressResponse { p := m.progress; p.SessionID = id; return p }
func (m *mockService) Backends(ctx context.Context) types.ModelsResponse { return m.models }
func (m *mockService) Ready(ctx context.Context) bool            { return m.ready }

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(w, req)
	return w
}

func TestDebugCodeHandler(t *testing.T) {
	svc := &mockService{answer: "use a nil check"}
	r := NewMux(svc)
	w := postJSON(t, r, "/debug-code", `{"question":"why nil deref?","code":"x.y()","session_id":"s1"}`)
	if w.Code != http.StatusOK { t.Fatalf("status=%d body=%s", w.Code, w.Body.String()) }
	var body types.GenerateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil { t.Fatalf("json: %v", err) }
	if body.Answer != "use a nil check" || body.TaskType != "debug" || body.SessionID != "s1" { t.Fatalf("unexpected body: %+v", body) }
	if body.ModelUsed != "local" { t.Fatalf("model_used=%s", body.ModelUsed) }
	if svc.lastReq.Question != "why nil deref?" || svc.lastReq.Code != "x.y()" { t.Fatalf("request not mapped: %+v", svc.lastReq) }
}

func TestMissingPrimaryField(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc)
	w := postJSON(t, r, "/debug-code", `{"code":"x.y()"}`)
	if w.Code != http.StatusBadRequest { t.Fatalf("status=%d", w.Code) }
	var body types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil { t.Fatalf("json: %v", err) }
	if !strings.Contains(body.Error, "question") { t.Fatalf("error=%q", body.Error) }
	if svc.lastReq != nil { t.Fatal("service should not be called") }
}

func TestWhitespacePrimaryFieldRejected(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc)
	w := postJSON(t, r, "/chat", `{"message":"   "}`)
	if w.Code != http.StatusBadRequest { t.Fatalf("status=%d", w.Code) }
}

func TestSessionDefaultsToDefault(t *testing.T) {
	svc := &mockService{answer: "hi"}
	r := NewMux(svc)
	w := postJSON(t, r, "/chat", `{"message":"hello"}`)
	if w.Code != http.StatusOK { t.Fatalf("status=%d", w.Code) }
	if svc.lastReq.SessionID != "default" { t.Fatalf("session=%q", svc.lastReq.SessionID) }
}

func TestReviewCodeBuildsPrompt(t *testing.T) {
	svc := &mockService{answer: "looks fine"}
	r := NewMux(svc)
	w := postJSON(t, r, "/review-code", `{"code":"const x = 1","context":"React"}`)
	if w.Code != http.StatusOK { t.Fatalf("status=%d", w.Code) }
	if !strings.Contains(svc.lastReq.Question, "Review this React code") { t.Fatalf("question=%q", svc.lastReq.Question) }
	if svc.lastReq.Record != "Review:\nconst x = 1" { t.Fatalf("record=%q", svc.lastReq.Record) }
}

func TestGenerateTestsDefaultsFramework(t *testing.T) {
	svc := &mockService{answer: "tests"}
	r := NewMux(svc)
	w := postJSON(t, r, "/generate-tests", `{"code":"function add(a,b){return a+b}"}`)
	if w.Code != http.StatusOK { t.Fatalf("status=%d", w.Code) }
	if !strings.Contains(svc.lastReq.Question, "comprehensive jest test cases") { t.Fatalf("question=%q", svc.lastReq.Question) }
}

func TestProjectGuidanceCarriesFeature(t *testing.T) {
	svc := &mockService{answer: "steps"}
	r := NewMux(svc)
	w := postJSON(t, r, "/project-guidance", `{"feature":"auth","session_id":"p1"}`)
	if w.Code != http.StatusOK { t.Fatalf("status=%d", w.Code) }
	if svc.lastReq.Feature != "auth" { t.Fatalf("feature=%q", svc.lastReq.Feature) }
	if !strings.Contains(svc.lastReq.Question, "MERN app") { t.Fatalf("question=%q", svc.lastReq.Question) }
}

func TestModelSelectorAndTokensForwarded(t *testing.T) {
	svc := &mockService{answer: "hi"}
	r := NewMux(svc)
	w := postJSON(t, r, "/chat", `{"message":"hello","model":"remote","max_new_tokens":64}`)
	if w.Code != http.StatusOK { t.Fatalf("status=%d", w.Code) }
	if svc.lastReq.Backend != "remote" || svc.lastReq.MaxTokens != 64 { t.Fatalf("request=%+v", svc.lastReq) }
}

func TestChatStreamSSE(t *testing.T) {
	svc := &mockService{fragments: []string{"Hel", "lo"}}
	r := NewMux(svc)
	w := postJSON(t, r, "/chat-stream", `{"message":"hello","session_id":"s1"}`)
	if w.Code != http.StatusOK { t.Fatalf("status=%d body=%s", w.Code, w.Body.String()) }
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" { t.Fatalf("content-type=%s", ct) }
	lines := []string{}
	for _, ln := range strings.Split(w.Body.String(), "\n") {
		if strings.HasPrefix(ln, "data: ") {
			lines = append(lines, strings.TrimPrefix(ln, "data: "))
		}
	}
	if len(lines) != 3 { t.Fatalf("events=%d body=%q", len(lines), w.Body.String()) }
	var frag struct {
		Token string `json:"token"`
		Task  string `json:"task"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &frag); err != nil { t.Fatalf("json: %v", err) }
	if frag.Token != "Hel" || frag.Task != "chat" { t.Fatalf("fragment=%+v", frag) }
	var done struct {
		Done      bool   `json:"done"`
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal([]byte(lines[2]), &done); err != nil { t.Fatalf("json: %v", err) }
	if !done.Done || done.SessionID != "s1" { t.Fatalf("done=%+v", done) }
}

func TestStreamErrorEvent(t *testing.T) {
	svc := &mockService{fragments: []string{"par"}, streamErr: context.DeadlineExceeded}
	r := NewMux(svc)
	w := postJSON(t, r, "/explain-concept-stream", `{"concept":"closures"}`)
	if w.Code != http.StatusOK { t.Fatalf("status=%d", w.Code) }
	if !strings.Contains(w.Body.String(), `"error"`) { t.Fatalf("body=%q", w.Body.String()) }
	if strings.Contains(w.Body.String(), `"done"`) { t.Fatalf("unexpected done event: %q", w.Body.String()) }
}

func TestStreamMissingFieldIsJSONError(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc)
	w := postJSON(t, r, "/debug-code-stream", `{}`)
	if w.Code != http.StatusBadRequest { t.Fatalf("status=%d", w.Code) }
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") { t.Fatalf("content-type=%s", ct) }
}

func TestBadJSON(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc)
	w := postJSON(t, r, "/chat", "not-json")
	if w.Code != http.StatusBadRequest { t.Fatalf("status=%d", w.Code) }
}

func TestUnsupportedMediaType(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(`{"message":"hi"}`))
	req.Header.Set("Content-Type", "text/plain")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType { t.Fatalf("status=%d", w.Code) }
}

func TestHistoryHandler(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/history/s1", nil))
	if w.Code != http.StatusOK { t.Fatalf("status=%d", w.Code) }
	var body types.HistoryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil { t.Fatalf("json: %v", err) }
	if body.SessionID != "s1" || body.MessageCount != 2 { t.Fatalf("body=%+v", body) }
}

func TestDeleteHistoryHandler(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/history/s1", nil))
	if w.Code != http.StatusOK { t.Fatalf("status=%d", w.Code) }
	if len(svc.deleted) != 1 || svc.deleted[0] != "s1" { t.Fatalf("deleted=%v", svc.deleted) }
	if !strings.Contains(w.Body.String(), "s1") { t.Fatalf("body=%q", w.Body.String()) }
}

func TestSessionsHandler(t *testing.T) {
	svc := &mockService{sessions: types.SessionsResponse{ActiveSessions: []string{"a", "b"}, TotalSessions: 2}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	if w.Code != http.StatusOK { t.Fatalf("status=%d", w.Code) }
	var body types.SessionsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil { t.Fatalf("json: %v", err) }
	if body.TotalSessions != 2 { t.Fatalf("body=%+v", body) }
}

func TestProgressHandler(t *testing.T) {
	svc := &mockService{progress: types.ProgressResponse{TotalInteractions: 4}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/progress/s1", nil))
	if w.Code != http.StatusOK { t.Fatalf("status=%d", w.Code) }
	var body types.ProgressResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil { t.Fatalf("json: %v", err) }
	if body.SessionID != "s1" || body.TotalInteractions != 4 { t.Fatalf("body=%+v", body) }
}

func TestModelsHandler(t *testing.T) {
	svc := &mockService{models: types.ModelsResponse{
		AvailableModels: map[string]types.BackendStatus{"local": {Status: "available"}},
		DefaultModel:    "local",
	}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/models", nil))
	if w.Code != http.StatusOK { t.Fatalf("status=%d", w.Code) }
	var body types.ModelsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil { t.Fatalf("json: %v", err) }
	if body.DefaultModel != "local" || body.AvailableModels["local"].Status != "available" { t.Fatalf("body=%+v", body) }
}

func TestHealthz(t *testing.T) {
	r := NewMux(&mockService{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK { t.Fatalf("status=%d", w.Code) }
}

func TestReadyz(t *testing.T) {
	r := NewMux(&mockService{ready: true})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK { t.Fatalf("status=%d", w.Code) }
}

func TestReadyz_NotReady(t *testing.T) {
	r := NewMux(&mockService{ready: false})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable { t.Fatalf("status=%d", w.Code) }
	if !strings.Contains(w.Body.String(), "loading") { t.Fatalf("body=%q", w.Body.String()) }
}
