package main

import (
	"context"
	"net/http"

	"github.com/dgallion1/policyrag/internal/answer"
	"github.com/dgallion1/policyrag/internal/config"
	"github.com/dgallion1/policyrag/internal/discover"
	"github.com/dgallion1/policyrag/internal/embedding"
	"github.com/dgallion1/policyrag/internal/loader"
	"github.com/dgallion1/policyrag/internal/pipeline"
	"github.com/dgallion1/policyrag/internal/vectorstore"
)

func pipelineOptions(c config.Config) pipeline.Options {
	return pipeline.Options{
		MaxCharLimit: c.MaxCharLimit,
		FetchTimeout: c.FetchTimeout,
	}
}

func newExtractor(c config.Config) loader.PageExtractor {
	return loader.DefaultChain(c.PDFFallbackPdftotext)
}

func newCrawler(c config.Config) *discover.Crawler {
	return discover.New(&http.Client{Timeout: c.FetchTimeout}, log)
}

func newEmbedder(c config.Config) (*embedding.OpenAIClient, error) {
	return embedding.NewOpenAIClient(embedding.Config{
		APIKey:  c.OpenAIAPIKey,
		BaseURL: c.OpenAIBaseURL,
		Model:   c.EmbeddingModel,
	})
}

func newClaude(c config.Config) *answer.ClaudeClient {
	return answer.NewClaudeClient(c.AnthropicAPIKey, c.AnthropicModel, c.AnthropicBaseURL)
}

func newAnswerService(c config.Config, emb embedding.Embedder, store vectorstore.Store, claude answer.Completer) *answer.Service {
	return answer.NewService(emb, store, claude, answer.Options{
		SearchLimit:     c.SearchLimit,
		CitationBaseURL: c.CitationBaseURL,
	}, log)
}

func openStore(ctx context.Context, c config.Config) (vectorstore.Store, error) {
	return vectorstore.Open(ctx, c)
}
