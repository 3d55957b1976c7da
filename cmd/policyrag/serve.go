package main

import (
	"context"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/policyrag/internal/api"
	"github.com/dgallion1/policyrag/internal/pipeline"
	"github.com/dgallion1/policyrag/internal/vectorstore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	// Initialize clients.
	emb, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	claude := newClaude(cfg)

	// Initialize pipeline.
	indexer := vectorstore.NewIndexer(store, emb, cfg.EmbedBatchSize, cfg.EmbedRatePerSec, log)
	worker := pipeline.NewWorker(pipelineOptions(cfg), newExtractor(cfg), indexer, newCrawler(cfg), log)
	orch := pipeline.NewOrchestrator(cfg, worker, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	asker := newAnswerService(cfg, emb, store, claude)
	srv := api.NewServer(orch, asker, asker.Stats, claude.Model(), log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		claude.Close()
		emb.Close()
		store.Close()
	}()

	log.Info("starting policyrag", "port", cfg.Port, "backend", cfg.VectorBackend, "collection", cfg.Collection)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		cancel()
		<-done
		return err
	}
	<-done
	return nil
}
