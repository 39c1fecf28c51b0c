package handlers

import (
	"context"
	"fmt"

	"helder/internal/classify"
	"helder/internal/config"
	"helder/internal/feeds"
	"helder/internal/ingest"
	"helder/internal/llm"
	"helder/internal/store"
	"helder/internal/summarize"
)

// pipeline bundles the wired components every command works with.
type pipeline struct {
	cfg         *config.Config
	store       store.Store
	chain       *llm.Chain
	classifier  *classify.Classifier
	summarizer  *summarize.Summarizer
	coordinator *ingest.Coordinator
	backfiller  *ingest.Backfiller
}

// buildPipeline wires the store, provider chain and pipeline stages
// from the loaded configuration.
func buildPipeline(ctx context.Context) (*pipeline, error) {
	cfg := config.Get()

	st, err := store.Open(cfg.Storage.Driver, cfg.Storage.DSN, cfg.App.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	chain, err := llm.BuildChain(ctx, cfg.LLM)
	if err != nil {
		st.Close()
		return nil, err
	}

	vocab, err := classify.LoadVocabulary(cfg.Classify.VocabularyFile)
	if err != nil {
		st.Close()
		return nil, err
	}

	fetcher := feeds.NewFetcher(feeds.Options{
		Timeout:         cfg.Feeds.TimeoutDuration(),
		UserAgent:       cfg.Feeds.UserAgent,
		MaxItemsPerFeed: cfg.Feeds.MaxItemsPerFeed,
	})

	classifier := classify.NewClassifier(chain, vocab)
	summarizer := summarize.NewSummarizer(chain)

	return &pipeline{
		cfg:         cfg,
		store:       st,
		chain:       chain,
		classifier:  classifier,
		summarizer:  summarizer,
		coordinator: ingest.NewCoordinator(fetcher, classifier, st, cfg.Feeds.URLs),
		backfiller:  ingest.NewBackfiller(st, summarizer),
	}, nil
}

// Close releases the pipeline's store handle.
func (p *pipeline) Close() {
	_ = p.store.Close()
}
