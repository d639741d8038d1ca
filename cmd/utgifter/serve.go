package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"utgifter/internal/amqp"
	"utgifter/internal/cache"
	"utgifter/internal/cli"
	apphttp "utgifter/internal/http"
	"utgifter/internal/log"
	"utgifter/internal/services"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := appLogger
	logger.Info("Starting utgifter", log.FieldOperation, log.OpStartup, "port", appConfig.Port)

	repo, err := cli.OpenStore(ctx, appConfig, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	categories := services.NewCategoryService(repo, logger)
	if err := categories.Seed(ctx, appConfig.SeedCategories); err != nil {
		return err
	}

	caches := cache.NewManager(logger)
	caches.StartCleanup(time.Minute)
	defer caches.Stop()

	cls, err := cli.NewClassifier(appConfig, repo, caches, logger)
	if err != nil {
		return err
	}

	expenseCfg := services.ExpenseServiceConfig{
		Expenses:   repo,
		Categories: repo,
		Classifier: cls,
		Fallback:   appConfig.FallbackCategory,
		Logger:     logger,
	}
	if appConfig.AMQPURL != "" {
		client, err := amqp.NewClient(appConfig.AMQPURL, appConfig.AMQPExchange, appConfig.AMQPQueue, logger)
		if err != nil {
			// Expenses are still stored; only the events are lost.
			logger.Warn("AMQP unavailable, expense events disabled",
				log.FieldComponent, log.ComponentAMQP,
				log.FieldError, err)
		} else {
			defer client.Close()
			expenseCfg.Publisher = client
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:               appConfig.Addr(),
		Expenses:           services.NewExpenseService(expenseCfg),
		Categories:         categories,
		Budgets:            services.NewBudgetService(repo, repo, logger),
		DB:                 repo,
		Logger:             logger,
		RateLimitPerMinute: appConfig.RateLimitPerMinute,
		TrustedProxies:     appConfig.TrustedProxies,
	})
	if err != nil {
		return err
	}

	ctx, done := cli.GracefulShutdown(ctx, logger, shutdownTimeout, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-ctx.Done()
	<-done
	return nil
}
