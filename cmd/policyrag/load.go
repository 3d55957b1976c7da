package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/policyrag/internal/config"
	"github.com/dgallion1/policyrag/internal/pipeline"
	"github.com/dgallion1/policyrag/internal/vectorstore"
)

var (
	loadListing  string
	loadDryRun   bool
	loadMaxChars int
	loadJSON     bool
)

var loadCmd = &cobra.Command{
	Use:   "load [source...]",
	Short: "Load PDFs and replace the indexed collection",
	Long: `Loads each source (a URL or a local PDF path) in order, splits it into
sections at header lines, chunks and consolidates the text and replaces the
collection with the result. Sources that fail are skipped and reported.

With no sources and no --listing, the configured listing page is crawled.`,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().StringVar(&loadListing, "listing", "", "crawl this page for PDF links")
	loadCmd.Flags().BoolVar(&loadDryRun, "dry-run", false, "print the text units instead of indexing them")
	loadCmd.Flags().IntVar(&loadMaxChars, "max-chars", 0, "chunk budget in characters (default MAX_CHAR_LIMIT)")
	loadCmd.Flags().BoolVar(&loadJSON, "json", false, "with --dry-run, print units as JSON")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	listing := loadListing
	if len(args) == 0 && listing == "" {
		listing = cfg.ListingURL
	}

	opts := pipelineOptions(cfg)
	if cmd.Flags().Changed("max-chars") {
		if err := config.ValidateMaxCharLimit(loadMaxChars); err != nil {
			return err
		}
		opts.MaxCharLimit = loadMaxChars
	}

	var indexer pipeline.Indexer
	if !loadDryRun {
		if err := cfg.ValidateIndexing(); err != nil {
			return err
		}
		emb, err := newEmbedder(cfg)
		if err != nil {
			return err
		}
		defer emb.Close()
		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		indexer = vectorstore.NewIndexer(store, emb, cfg.EmbedBatchSize, cfg.EmbedRatePerSec, log)
	}

	worker := pipeline.NewWorker(opts, newExtractor(cfg), indexer, newCrawler(cfg), log)
	job := pipeline.NewJob(args, listing)
	job.DryRun = loadDryRun
	units := worker.Process(ctx, job)
	snap := job.Snapshot()

	if loadDryRun {
		if loadJSON {
			data, err := json.MarshalIndent(units, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal units: %w", err)
			}
			cmd.Println(string(data))
		} else {
			for i, u := range units {
				cmd.Printf("=== unit %d ===\n%s\n\n", i+1, u.Body)
			}
		}
	}

	for _, f := range snap.Progress.Failures {
		cmd.PrintErrf("skipped %s (%s): %s\n", f.Source, f.Kind, f.Message)
	}
	if snap.Summary != "" {
		cmd.Println(snap.Summary)
	}
	if snap.Status == pipeline.StatusFailed {
		if len(snap.Progress.Errors) > 0 {
			return fmt.Errorf("load failed: %s", snap.Progress.Errors[len(snap.Progress.Errors)-1])
		}
		return fmt.Errorf("load failed: no source could be loaded")
	}
	if !loadDryRun {
		cmd.Printf("indexed %d units into %s\n", snap.Progress.UnitsStored, cfg.Collection)
	}
	return nil
}
