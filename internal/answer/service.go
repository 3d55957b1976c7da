package answer

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/dgallion1/policyrag/internal/chunker"
	"github.com/dgallion1/policyrag/internal/embedding"
	"github.com/dgallion1/policyrag/internal/retry"
	"github.com/dgallion1/policyrag/internal/vectorstore"
)

// Searcher is the read side of a vector store.
type Searcher interface {
	Search(ctx context.Context, vector []float32, k int) ([]vectorstore.Match, error)
}

type Options struct {
	SearchLimit      int
	CitationBaseURL  string
	MaxContextTokens int
}

// Answer is a generated reply with its cited sources.
type Answer struct {
	Text    string   `json:"answer"`
	HTML    string   `json:"answer_html"`
	Sources []string `json:"sources"`
}

// Service answers questions from the indexed collection.
type Service struct {
	embedder  embedding.Embedder
	searcher  Searcher
	completer Completer
	opts      Options
	log       *slog.Logger

	// Stats holds per-stage latency of Ask.
	Stats *StageStats

	strip    *bluemonday.Policy
	sanitize *bluemonday.Policy
	md       goldmark.Markdown
}

func NewService(embedder embedding.Embedder, searcher Searcher, completer Completer, opts Options, log *slog.Logger) *Service {
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = 3
	}
	if opts.MaxContextTokens <= 0 {
		opts.MaxContextTokens = 6000
	}
	return &Service{
		embedder:  embedder,
		searcher:  searcher,
		completer: completer,
		opts:      opts,
		log:       log,
		Stats:     NewStageStats(DefaultStatsWindow),
		strip:     bluemonday.StrictPolicy(),
		sanitize:  bluemonday.UGCPolicy(),
		md:        goldmark.New(),
	}
}

// Ask embeds the question, retrieves the closest units and asks the model to
// answer from them alone.
func (s *Service) Ask(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question is empty")
	}

	var vector []float32
	start := time.Now()
	err := retry.Do(ctx, s.log, "embed question", func(ctx context.Context) error {
		var err error
		vector, err = s.embedder.Embed(ctx, question)
		return err
	})
	s.Stats.Observe(StageEmbed, start, err)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	start = time.Now()
	matches, err := s.searcher.Search(ctx, vector, s.opts.SearchLimit)
	s.Stats.Observe(StageSearch, start, err)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if len(matches) == 0 {
		return s.render(NoDocumentsMessage, nil), nil
	}

	passages := s.passages(matches)
	sources := s.citations(passages)
	user := BuildUserPrompt(BuildContext(passages), question)

	var text string
	start = time.Now()
	err = retry.Do(ctx, s.log, "complete", func(ctx context.Context) error {
		var err error
		text, err = s.completer.Complete(ctx, SystemPrompt, user)
		return err
	})
	s.Stats.Observe(StageComplete, start, err)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	s.log.Info("answered question", "matches", len(matches), "passages", len(passages), "sources", len(sources))
	return s.render(AppendCitations(text, sources), sources), nil
}

// passages converts matches to plain text and keeps as many as fit the
// token budget. The best match is always kept.
func (s *Service) passages(matches []vectorstore.Match) []ContextPassage {
	var (
		out    []ContextPassage
		tokens int
	)
	for _, m := range matches {
		name := m.FileName()
		if name == "" {
			name = "N/A"
		}
		p := ContextPassage{FileName: name, Text: s.plainText(m.Body)}
		n := chunker.EstimateTokens(p.Text)
		if len(out) > 0 && tokens+n > s.opts.MaxContextTokens {
			s.log.Debug("context budget reached", "kept", len(out), "dropped", len(matches)-len(out))
			break
		}
		tokens += n
		out = append(out, p)
	}
	return out
}

// plainText strips any markup from a stored body and collapses whitespace.
func (s *Service) plainText(body string) string {
	text := html.UnescapeString(s.strip.Sanitize(body))
	return strings.Join(strings.Fields(text), " ")
}

// citations returns the unique, sorted source URLs of the passages. File
// names are stored decoded, so they are escaped back into a path segment.
func (s *Service) citations(passages []ContextPassage) []string {
	seen := make(map[string]bool)
	var urls []string
	for _, p := range passages {
		if p.FileName == "N/A" {
			continue
		}
		u := s.opts.CitationBaseURL + url.PathEscape(p.FileName)
		if !seen[u] {
			seen[u] = true
			urls = append(urls, u)
		}
	}
	sort.Strings(urls)
	return urls
}

func (s *Service) render(text string, sources []string) *Answer {
	if sources == nil {
		sources = []string{}
	}
	a := &Answer{Text: text, Sources: sources}
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(text), &buf); err != nil {
		s.log.Warn("markdown render failed", "error", err)
		a.HTML = s.sanitize.Sanitize(html.EscapeString(text))
		return a
	}
	a.HTML = s.sanitize.Sanitize(buf.String())
	return a
}
