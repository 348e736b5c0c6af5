package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/soaringjerry/MoodMetrics/internal/api"
	"github.com/soaringjerry/MoodMetrics/internal/config"
	"github.com/soaringjerry/MoodMetrics/internal/logging"
	"github.com/soaringjerry/MoodMetrics/internal/middleware"
	"github.com/soaringjerry/MoodMetrics/internal/services"
	"github.com/soaringjerry/MoodMetrics/internal/utils"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:          "moodmetrics",
	Short:        "Employee wellbeing pulse surveys and HR dashboard",
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML config file (default: config/config.yaml)")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, importCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads the configuration and builds the logger every command
// shares.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(logging.Options{
		Level:      cfg.Logging.Level,
		Directory:  cfg.Logging.Directory,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
		Console:    cfg.Logging.Console,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	var classifier services.Classifier
	if cfg.Dashboard.KeywordsFile != "" {
		kc, err := services.LoadKeywordClassifier(cfg.Dashboard.KeywordsFile)
		if err != nil {
			return err
		}
		classifier = kc
	}

	if cfg.Auth.JWTSecret == "" {
		log.Warn("auth.jwt_secret is not set, using the development secret")
	}
	auth := middleware.NewAuth(cfg.Auth.Secret())
	rt := api.NewRouter(store, api.Options{
		Auth:       auth,
		TokenTTL:   cfg.Auth.TokenTTL,
		Settings:   cfg.Settings.Record(),
		Thresholds: cfg.Thresholds,
		Classifier: classifier,
		Dashboard:  cfg.Dashboard.DashboardOptions,
		Chat:       cfg.AI,
		Log:        log,
	})

	mux := http.NewServeMux()
	rt.Register(mux)
	health := healthHandler(cfg.Server)
	mux.HandleFunc("GET /health", health)
	mux.HandleFunc("GET /api/health", health)
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"commit":     cfg.Server.Commit,
			"build_time": cfg.Server.BuildTime,
		})
	})
	if cfg.Server.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(cfg.Server.StaticDir)))
	}

	handler := middleware.Chain(mux,
		middleware.RequestLogger(log.Named("http")),
		middleware.SecureHeaders,
		middleware.CORS(cfg.Server.AllowedOrigins),
		middleware.NoStore,
		middleware.LocaleMiddleware,
		auth.WithAuth,
	)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("MoodMetrics server listening", zap.String("addr", srv.Addr), zap.String("db", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func healthHandler(s config.ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		locale := middleware.LocaleFromContext(r.Context())
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":         true,
			"name":       "MoodMetrics API",
			"locale":     locale,
			"msg":        utils.T(locale, "health.ok"),
			"commit":     s.Commit,
			"build_time": s.BuildTime,
		})
	}
}
