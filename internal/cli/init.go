// Package cli provides common CLI initialization utilities.
// This package consolidates the wiring shared by the serve, worker and
// maintenance commands of cmd/utgifter.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"utgifter/internal/cache"
	"utgifter/internal/classifier"
	"utgifter/internal/config"
	"utgifter/internal/log"
	"utgifter/internal/storage"
)

// classifierCacheSize bounds the number of memoized descriptions.
const classifierCacheSize = 1000

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig resolves the configuration from v and validates it.
func LoadAndValidateConfig(v *viper.Viper) (*config.Config, error) {
	cfg := config.Load(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the process logger from cfg and installs it as the
// slog default.
func SetupLogger(cfg *config.Config) *log.Logger {
	level, _ := log.ParseLevel(cfg.LogLevel)
	logger := log.New(log.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// OpenStore connects to the configured database and migrates it.
func OpenStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (*storage.Repository, error) {
	repo, err := storage.Open(ctx, storage.Config{Driver: cfg.DatabaseDriver, DSN: cfg.DatabaseURL})
	if err != nil {
		logger.Error("Failed to open database",
			log.FieldComponent, log.ComponentStorage,
			log.FieldError, err,
			"driver", cfg.DatabaseDriver)
		return nil, err
	}
	logger.Info("Database ready", "driver", cfg.DatabaseDriver)
	return repo, nil
}

// NewClassifier builds the configured classifier. Without an inference URL
// every description gets the fallback label. A positive cache TTL wraps
// the model in a memoizing cache registered with caches.
func NewClassifier(cfg *config.Config, categories classifier.CategoryLister, caches *cache.Manager, logger *log.Logger) (classifier.Classifier, error) {
	if cfg.InferenceURL == "" {
		logger.Warn("No inference URL configured, classification disabled",
			log.FieldComponent, log.ComponentClassifier)
		return classifier.Fixed(cfg.FallbackCategory), nil
	}

	var labels classifier.LabelSource = classifier.CategoryLabels(categories)
	if len(cfg.ClassifierLabels) > 0 {
		labels = classifier.StaticLabels(cfg.ClassifierLabels)
	}

	model, err := classifier.NewOllama(classifier.OllamaConfig{
		BaseURL:  cfg.InferenceURL,
		Model:    cfg.InferenceModel,
		Timeout:  cfg.InferenceTimeout,
		Fallback: cfg.FallbackCategory,
		Labels:   labels,
		Logger:   logger.WithComponent(log.ComponentClassifier),
	})
	if err != nil {
		return nil, err
	}

	if cfg.ClassifierCacheTTL <= 0 {
		return model, nil
	}
	cached := classifier.NewCached(model, cfg.FallbackCategory, classifierCacheSize, cfg.ClassifierCacheTTL)
	if caches != nil {
		caches.Register(cached.Cache())
	}
	return cached, nil
}

// GracefulShutdown returns a context that is cancelled on SIGINT or SIGTERM.
// cleanup runs with a context bounded by timeout before done is closed.
func GracefulShutdown(parent context.Context, logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-parent.Done():
			logger.Info("Shutdown requested")
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}
