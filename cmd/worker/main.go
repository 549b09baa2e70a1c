package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kvasnikov/faq-chatbot/internal/bootstrap"
	"github.com/kvasnikov/faq-chatbot/internal/config"
	"github.com/kvasnikov/faq-chatbot/internal/infrastructure/queue/nats"
	"github.com/kvasnikov/faq-chatbot/internal/observability/logging"
	"github.com/kvasnikov/faq-chatbot/internal/observability/metrics"
)

const taskTimeout = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.NewJSONLogger("worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker_metrics_server_error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	concurrency := cfg.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	pool := nats.NewDispatcher(concurrency)

	logger.Info("worker_subscribed",
		"subject", cfg.NATSSubject,
		"concurrency", concurrency,
		"generation_mode", string(app.GenerationMode),
	)

	err = app.Queue.SubscribeChatTasks(ctx, func(handlerCtx context.Context, taskID string) error {
		pool.Go(func() {
			// Detached from the subscription context: shutdown drains the
			// subscription but claimed tasks run to completion, bounded by
			// the per-task timeout.
			processCtx, cancel := context.WithTimeout(context.WithoutCancel(handlerCtx), taskTimeout)
			defer cancel()

			workerMetrics.StartTask()
			start := time.Now()
			if task, getErr := app.Tasks.GetTask(processCtx, taskID); getErr == nil {
				workerMetrics.ObserveQueueLag("worker", start.Sub(task.CreatedAt))
			}

			processErr := app.PipelineUC.ProcessByID(processCtx, taskID)
			workerMetrics.FinishTask("worker", time.Since(start), processErr)
			if processErr != nil {
				logger.Error("task_process_failed", "task_id", taskID, "error", processErr)
			}

			if task, getErr := app.Tasks.GetTask(processCtx, taskID); getErr == nil && task.Result != nil {
				workerMetrics.ObserveEvidence("worker", len(task.Result.Citations), task.Result.Note != "")
			}
		})
		return nil
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}

	pool.Wait()
	logger.Info("worker_drained")
}
