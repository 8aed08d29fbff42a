package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/researchmesh/logging"
)

// NoResults is the observation returned when a search yields nothing.
const NoResults = "No search results found, please try with another query"

// Options configures a Service.
type Options struct {
	// MaxResults per query (default 3).
	MaxResults int
	// Topic is used when a call does not specify one (default "general").
	Topic string
	// Days is the recency window (default 365).
	Days int
	// IncludeRawContent asks the backend for page bodies, enabling summarization.
	IncludeRawContent bool
	// Summarizer condenses raw page content; nil keeps the backend snippet.
	Summarizer Summarizer
	Logger     logging.Logger
}

// Service runs queries, deduplicates and summarizes the hits and renders them
// as a tool observation.
type Service struct {
	searcher Searcher
	opts     Options
}

// NewService creates a search service.
func NewService(searcher Searcher, optFns ...func(o *Options)) *Service {
	opts := Options{
		MaxResults:        3,
		Topic:             "general",
		Days:              365,
		IncludeRawContent: true,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	return &Service{searcher: searcher, opts: opts}
}

// Page is a deduplicated, processed search hit.
type Page struct {
	URL     string
	Title   string
	Content string
}

// Search runs every query and returns the formatted observation. An empty
// topic uses the configured default.
func (s *Service) Search(ctx context.Context, queries []string, topic string) (string, error) {
	if topic == "" {
		topic = s.opts.Topic
	}

	responses := make([]*Response, 0, len(queries))

	for _, q := range queries {
		resp, err := s.searcher.Search(ctx, Query{
			Query:             q,
			Topic:             topic,
			Days:              s.opts.Days,
			MaxResults:        s.opts.MaxResults,
			IncludeRawContent: s.opts.IncludeRawContent,
		})
		if err != nil {
			return "", fmt.Errorf("search %q: %w", q, err)
		}

		responses = append(responses, resp)
	}

	unique := Deduplicate(responses)

	s.opts.Logger.Debug("search.completed", "queries", len(queries), "unique_results", len(unique))

	pages, err := s.process(ctx, unique)
	if err != nil {
		return "", err
	}

	return Format(pages), nil
}

func (s *Service) process(ctx context.Context, results []Result) ([]Page, error) {
	pages := make([]Page, 0, len(results))

	for _, r := range results {
		content := r.Content

		if r.RawContent != "" && s.opts.Summarizer != nil {
			summary, err := s.opts.Summarizer.Summarize(ctx, r.RawContent)
			if err != nil {
				return nil, err
			}

			content = summary
		}

		pages = append(pages, Page{URL: r.URL, Title: r.Title, Content: content})
	}

	return pages, nil
}

// Deduplicate flattens the responses and keeps the first hit per URL, in
// encounter order.
func Deduplicate(responses []*Response) []Result {
	seen := make(map[string]struct{})

	var out []Result

	for _, resp := range responses {
		if resp == nil {
			continue
		}

		for _, r := range resp.Results {
			if _, dup := seen[r.URL]; dup {
				continue
			}

			seen[r.URL] = struct{}{}

			out = append(out, r)
		}
	}

	return out
}

// Format renders pages as the search tool observation.
func Format(pages []Page) string {
	if len(pages) == 0 {
		return NoResults
	}

	var b strings.Builder

	b.WriteString("Search results:\n")

	for _, p := range pages {
		fmt.Fprintf(&b, "<source>\n%s\n</source>\n", p.URL)
		fmt.Fprintf(&b, "<title>\n%s\n</title>\n", p.Title)
		fmt.Fprintf(&b, "<content>\n%s\n</content>\n", p.Content)
		b.WriteString(strings.Repeat("-", 100))
		b.WriteString("\n")
	}

	return b.String()
}
