package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"utgifter/internal/amqp"
	"utgifter/internal/cache"
	"utgifter/internal/cli"
	"utgifter/internal/log"
	"utgifter/internal/services"
	"utgifter/internal/worker"
)

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume expense events and retry classification of fallback expenses",
		Args:  cobra.NoArgs,
		RunE:  runWorker,
	}
}

func runWorker(cmd *cobra.Command, _ []string) error {
	if appConfig.AMQPURL == "" {
		return errors.New("worker requires AMQP_URL")
	}
	logger := appLogger.WithComponent(log.ComponentWorker)
	logger.Info("Starting utgifter worker", log.FieldOperation, log.OpStartup)

	repo, err := cli.OpenStore(cmd.Context(), appConfig, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	caches := cache.NewManager(logger)
	caches.StartCleanup(time.Minute)
	defer caches.Stop()

	cls, err := cli.NewClassifier(appConfig, repo, caches, logger)
	if err != nil {
		return err
	}
	expenses := services.NewExpenseService(services.ExpenseServiceConfig{
		Expenses:   repo,
		Categories: repo,
		Classifier: cls,
		Fallback:   appConfig.FallbackCategory,
		Logger:     logger,
	})

	client, err := amqp.NewClient(appConfig.AMQPURL, appConfig.AMQPExchange, appConfig.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		return err
	}
	defer client.Close()

	ctx, done := cli.GracefulShutdown(cmd.Context(), logger, shutdownTimeout, nil)
	reclassifier := worker.NewReclassifyWorker(expenses, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := client.ConsumeExpenseEvents(gctx, reclassifier.HandleExpenseEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	err = g.Wait()
	if err != nil {
		logger.Error("Message consumption failed", log.FieldError, err)
		return err
	}
	<-done
	return nil
}
