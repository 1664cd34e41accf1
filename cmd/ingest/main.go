package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"localnews/internal/app"
	"localnews/internal/model"
	"localnews/internal/scheduler"
)

func main() {
	every := flag.Duration("every", 0, "repeat ingestion at this interval instead of running once")
	sourceID := flag.Int64("source", 0, "ingest only the source with this ID")
	flag.Parse()

	a, err := app.Setup()
	if err != nil {
		slog.Error("setup", "error", err)
		os.Exit(1)
	}
	defer func() { _ = a.Close() }()
	log := a.Log

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p := a.Pipeline()

	if *sourceID != 0 {
		src, err := a.Store.GetSource(ctx, *sourceID)
		if err != nil {
			log.Error("load source", "source_id", *sourceID, "error", err)
			os.Exit(1)
		}
		sum := p.RunSources(ctx, []model.Source{*src})
		if sum.Failed > 0 {
			os.Exit(1)
		}
		return
	}

	if *every > 0 {
		log.Info("starting scheduled ingestion", "every", every.String())
		scheduler.New(p, log, *every).Run(ctx)
		log.Info("ingestion stopped")
		return
	}

	start := time.Now()
	sum, err := p.Run(ctx)
	if err != nil {
		log.Error("ingestion", "error", err)
		os.Exit(1)
	}
	log.Info("done", "inserted", sum.Inserted, "failed", sum.Failed, "elapsed", time.Since(start).Round(time.Millisecond))
}
