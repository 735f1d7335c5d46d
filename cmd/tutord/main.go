package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tutord/internal/backend"
	"tutord/internal/config"
	"tutord/internal/engine"
	"tutord/internal/httpapi"
	"tutord/internal/session"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func main() {
	var (
		addr           string
		configPath     string
		modelPath      string
		ctxSize        int
		threads        int
		remoteURL      string
		remoteModel    string
		defaultBackend string
		historyLimit   int
		logLevel       string
		logFormat      string
	)

	root := &cobra.Command{
		Use:   "tutord",
		Short: "Tutoring generation daemon over local and remote model backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Config{
				Addr:           addr,
				ModelPath:      modelPath,
				CtxSize:        ctxSize,
				Threads:        threads,
				RemoteURL:      remoteURL,
				RemoteModel:    remoteModel,
				DefaultBackend: defaultBackend,
				HistoryLimit:   historyLimit,
				LogLevel:       logLevel,
				LogFormat:      logFormat,
			}
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = mergeConfig(loaded, cfg, cmd)
			}
			return run(cfg)
		},
	}

	root.Flags().StringVar(&addr, "addr", envOr("TUTORD_ADDR", ":8000"), "HTTP listen address, e.g. :8000")
	root.Flags().StringVar(&configPath, "config", envOr("TUTORD_CONFIG", ""), "Path to config file (yaml, json or toml)")
	root.Flags().StringVar(&modelPath, "model-path", envOr("TUTORD_MODEL_PATH", ""), "Path to a local *.gguf model file")
	root.Flags().IntVar(&ctxSize, "ctx-size", envOrInt("TUTORD_CTX_SIZE", 4096), "Local model context window size")
	root.Flags().IntVar(&threads, "threads", envOrInt("TUTORD_THREADS", 4), "Local inference threads")
	root.Flags().StringVar(&remoteURL, "remote-url", envOr("TUTORD_REMOTE_URL", "http://localhost:11434"), "Base URL of the remote inference service")
	root.Flags().StringVar(&remoteModel, "remote-model", envOr("TUTORD_REMOTE_MODEL", "phi3:mini"), "Model name to request from the remote service")
	root.Flags().StringVar(&defaultBackend, "default-backend", envOr("TUTORD_DEFAULT_BACKEND", "local"), "Backend used when a request names none (local or remote)")
	root.Flags().IntVar(&historyLimit, "history-limit", envOrInt("TUTORD_HISTORY_LIMIT", session.DefaultHistoryLimit), "Turns retained per session")
	root.Flags().StringVar(&logLevel, "log-level", envOr("TUTORD_LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	root.Flags().StringVar(&logFormat, "log-format", envOr("TUTORD_LOG_FORMAT", "console"), "Log format: console or json")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// mergeConfig overlays flag values the user set explicitly on top of the
// loaded file config.
func mergeConfig(file, flags config.Config, cmd *cobra.Command) config.Config {
	out := file
	if cmd.Flags().Changed("addr") || out.Addr == "" {
		out.Addr = flags.Addr
	}
	if cmd.Flags().Changed("model-path") || out.ModelPath == "" {
		out.ModelPath = flags.ModelPath
	}
	if cmd.Flags().Changed("ctx-size") || out.CtxSize == 0 {
		out.CtxSize = flags.CtxSize
	}
	if cmd.Flags().Changed("threads") || out.Threads == 0 {
		out.Threads = flags.Threads
	}
	if cmd.Flags().Changed("remote-url") || out.RemoteURL == "" {
		out.RemoteURL = flags.RemoteURL
	}
	if cmd.Flags().Changed("remote-model") || out.RemoteModel == "" {
		out.RemoteModel = flags.RemoteModel
	}
	if cmd.Flags().Changed("default-backend") || out.DefaultBackend == "" {
		out.DefaultBackend = flags.DefaultBackend
	}
	if cmd.Flags().Changed("history-limit") || out.HistoryLimit == 0 {
		out.HistoryLimit = flags.HistoryLimit
	}
	if cmd.Flags().Changed("log-level") || out.LogLevel == "" {
		out.LogLevel = flags.LogLevel
	}
	if cmd.Flags().Changed("log-format") || out.LogFormat == "" {
		out.LogFormat = flags.LogFormat
	}
	return out
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if cfg.LogFormat == "json" {
		logger = zerolog.New(os.Stderr)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return logger.Level(level).With().Timestamp().Logger()
}

func run(cfg config.Config) error {
	logger := newLogger(cfg)

	local := backend.NewLocal(cfg.ModelPath, cfg.CtxSize, cfg.Threads, logger)
	defer local.Close()
	remote := backend.NewRemote(cfg.RemoteURL, cfg.RemoteModel, logger)

	store := session.NewStore(cfg.HistoryLimit)
	eng := engine.New(store, map[string]backend.Generator{
		local.Name():  local,
		remote.Name(): remote,
	}, cfg.DefaultBackend, logger)

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetLogger(logger)
	httpapi.SetBaseContext(baseCtx)

	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(eng)}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("default_backend", cfg.DefaultBackend).Msg("tutord listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
		return err
	}
	return nil
}
