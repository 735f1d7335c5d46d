package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tutord/internal/engine"
	"tutord/pkg/types"
)

// Service is the generation surface the HTTP layer depends on.
type Service interface {
	Generate(ctx context.Context, req engine.Request) (engine.Result, error)
	GenerateStream(ctx context.Context, req engine.Request, sink engine.Sink) error
	History(sessionID string) types.HistoryResponse
	DeleteSession(sessionID string)
	Sessions() types.SessionsResponse
	Progress(sessionID string) types.ProgressResponse
	Backends(ctx context.Context) types.ModelsResponse
	Ready(ctx context.Context) bool
}

// NewMux constructs the HTTP mux for the daemon.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(securityHeaders)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}

	for _, rt := range taskRoutes {
		rt := rt
		r.Post(rt.path, taskHandler(svc, rt, false))
		if rt.streaming {
			r.Post(rt.path+"-stream", taskHandler(svc, rt, true))
		}
	}

	r.Get("/history/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.History(chi.URLParam(r, "sessionID")))
	})
	r.Delete("/history/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		svc.DeleteSession(id)
		writeJSON(w, types.DeleteResponse{Message: "history cleared for session " + id})
	})
	r.Get("/sessions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Sessions())
	})
	r.Get("/progress/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Progress(chi.URLParam(r, "sessionID")))
	})
	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Backends(r.Context()))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !svc.Ready(r.Context()) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("loading"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Handle("/metrics", promhttp.Handler())
	MountSwagger(r)

	return r
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// decodeGenerateRequest validates content type and body size, then decodes
// the JSON payload.
func decodeGenerateRequest(w http.ResponseWriter, r *http.Request) (types.GenerateRequest, bool) {
	var req types.GenerateRequest
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || mt != "application/json" {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return req, false
		}
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}
	return req, true
}

func taskHandler(svc Service, rt taskRoute, stream bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeGenerateRequest(w, r)
		if !ok {
			return
		}
		primary := strings.TrimSpace(rt.primary(req))
		if primary == "" {
			writeJSONError(w, http.StatusBadRequest, "missing '"+rt.field+"' field")
			return
		}
		sessionID := req.SessionID
		if sessionID == "" {
			sessionID = "default"
		}

		er := rt.build(req, primary)
		er.SessionID = sessionID
		er.Task = rt.task
		er.Backend = req.Model
		er.MaxTokens = req.MaxNewTokens

		lvl := requestLogLevel(r)
		if lvl >= LevelInfo {
			if zlog != nil {
				zlog.Info().Str("path", r.URL.Path).Str("task", string(rt.task)).
					Str("session", sessionID).Bool("stream", stream).Msg("task request")
			} else {
				log.Printf("task request path=%s task=%s session=%s stream=%v", r.URL.Path, rt.task, sessionID, stream)
			}
		}

		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()

		if !stream {
			res, err := svc.Generate(ctx, er)
			if err != nil {
				// Context is gone; the client can no longer receive a reply.
				if lvl >= LevelDebug {
					if zlog != nil {
						zlog.Debug().Err(err).Str("session", sessionID).Msg("request abandoned")
					} else {
						log.Printf("request abandoned session=%s: %v", sessionID, err)
					}
				}
				return
			}
			writeJSON(w, types.GenerateResponse{
				Answer:      res.Answer,
				TaskType:    string(rt.task),
				SessionID:   sessionID,
				ModelUsed:   res.Backend,
				TimeSeconds: math.Round(res.Elapsed.Seconds()*100) / 100,
			})
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		sink := &sseSink{w: w}
		if f, ok := w.(http.Flusher); ok {
			sink.flush = f.Flush
		}
		if err := svc.GenerateStream(ctx, er, sink); err != nil && lvl >= LevelDebug {
			if zlog != nil {
				zlog.Debug().Err(err).Str("session", sessionID).Msg("stream ended early")
			} else {
				log.Printf("stream ended early session=%s: %v", sessionID, err)
			}
		}
	}
}
