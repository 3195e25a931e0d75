package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/creditdesk/riskflow/internal/bootstrap"
	"github.com/creditdesk/riskflow/internal/config"
	"github.com/creditdesk/riskflow/internal/core/domain"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Service: "worker", EnableQueue: true})
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	// Review decisions arrive over NATS and are forwarded to the runs this
	// worker holds suspended.
	reviewSub, err := app.Queue.SubscribeReviewDecisions(ctx, app.Hub.Submit)
	if err != nil {
		log.Fatalf("worker review subscribe error: %v", err)
	}
	defer func() { _ = reviewSub.Drain() }()

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: app.Metrics.Handler(),
	}
	go func() {
		log.Printf("worker metrics listening on :%s", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("worker metrics server error: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	log.Printf("worker subscribed to %s", cfg.NATSCasesSubject)
	err = app.Queue.SubscribeCases(ctx, func(handlerCtx context.Context, cs domain.CreditCase) error {
		runCtx, cancel := context.WithTimeout(handlerCtx, 15*time.Minute)
		defer cancel()

		report, err := app.Orchestrator.Run(runCtx, cs)
		if err != nil {
			return err
		}

		if path, exportErr := app.Exporter.Export(report); exportErr != nil {
			app.Logger.Warn("report export failed", "case_id", cs.ID, "error", exportErr)
		} else {
			app.Logger.Info("report exported", "case_id", cs.ID, "path", path)
		}
		return app.Queue.PublishReport(runCtx, report)
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
