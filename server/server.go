package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashermasroor/SlowRvbBass/cache"
	"github.com/ashermasroor/SlowRvbBass/config"
	"github.com/ashermasroor/SlowRvbBass/core/audio"
	"github.com/ashermasroor/SlowRvbBass/core/lifecycle"
	"github.com/ashermasroor/SlowRvbBass/core/processing"
	"github.com/ashermasroor/SlowRvbBass/core/source"
	"github.com/ashermasroor/SlowRvbBass/db"
	"github.com/ashermasroor/SlowRvbBass/logger"
	"github.com/ashermasroor/SlowRvbBass/repository"
	"github.com/ashermasroor/SlowRvbBass/storage"

	"github.com/gorilla/mux"
)

// NewRouter registers the API routes on a gorilla/mux router.
func NewRouter(h *APIHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(requestLogMiddleware)
	router.Use(corsMiddleware)

	router.HandleFunc("/upload", h.UploadHandler).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/effects", h.EffectsHandler).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/stream/{effects_id}", h.StreamHandler).Methods(http.MethodGet, http.MethodHead, http.MethodOptions)
	router.HandleFunc("/download/{effects_id}", h.DownloadHandler).Methods(http.MethodGet, http.MethodHead, http.MethodOptions)
	router.HandleFunc("/health", h.HealthHandler).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no such route")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" is not allowed")
	})
	return router
}

// Start wires every component from cfg, serves HTTP and shuts down gracefully on
// SIGINT or SIGTERM.
func Start(cfg *config.Config) error {
	for _, dir := range cfg.Dirs() {
		if err := ensureDirExists(dir); err != nil {
			return err
		}
	}
	if err := source.WriteCookies(cfg.CookiesFile, cfg.CookiesBase64); err != nil {
		return err
	}

	conn, err := db.ConnectDB(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := db.Migrate(conn); err != nil {
		return err
	}

	repo := repository.NewSQLAssetRepository(conn)
	if cfg.RedisEnabled() {
		client, err := cache.ConnectRedis(context.Background(), cfg)
		if err != nil {
			logger.Warn("Redis unavailable, continuing without the variant cache", logger.ErrorField(err))
		} else {
			defer client.Close()
			logger.Info("Successfully connected to Redis")
			repo = repository.NewCachedAssetRepository(repo, cache.NewVariantCache(client, cfg.RedisTTL))
		}
	}

	durable, err := storage.NewMinioStore(cfg)
	if err != nil {
		return err
	}
	if err := durable.EnsureBucket(context.Background(), cfg.StorageRegion); err != nil {
		logger.Warn("Could not verify storage bucket", logger.String("bucket", durable.Bucket()), logger.ErrorField(err))
	}
	local, err := storage.NewLocalCache(cfg.CacheDir)
	if err != nil {
		return err
	}
	placement := storage.NewPlacement(local, durable, repo)

	processor := audio.NewFFmpegProcessor(cfg.FFmpegPath, cfg.AudioBitrate)
	acquirer := source.NewAcquirer(cfg, audio.ExecRunner{}, processor)
	svc := processing.NewService(acquirer, processor, repo, placement, cfg.DownloadDir)

	cleanup := lifecycle.NewManager(lifecycle.Config{
		Workers:   cfg.CleanupWorkers,
		QueueSize: cfg.CleanupQueueSize,
		Delay:     cfg.CleanupDelay,
		Protected: []string{cfg.SourcesDir},
	})
	cleanup.Start()
	defer cleanup.Stop()

	apiHandler, err := NewAPIHandler(svc, cleanup)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      NewRouter(apiHandler),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-stop:
	}

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

func ensureDirExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info("Creating directory", logger.String("path", path))
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", path, err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to check directory %s: %w", path, err)
	}
	return nil
}
