package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/vocabmine/internal/model"
)

// Fetcher fetches one source into a document. Implementations never fail;
// fetch errors come back as error-marker documents.
type Fetcher interface {
	Fetch(ctx context.Context, spec model.SourceSpec) model.Document
}

// FetchResult is the outcome of one source in a batch
type FetchResult struct {
	Spec     model.SourceSpec
	Document model.Document
	Duration time.Duration
	Skipped  bool // Never started because the batch context ended
}

// BatchFetcher fans source fetches out over a bounded pool
type BatchFetcher struct {
	fetcher     Fetcher
	limiter     *Limiter
	concurrency int
}

// NewBatchFetcher creates a batch fetcher; limiter may be nil
func NewBatchFetcher(fetcher Fetcher, limiter *Limiter, concurrency int) *BatchFetcher {
	return &BatchFetcher{
		fetcher:     fetcher,
		limiter:     limiter,
		concurrency: concurrency,
	}
}

// FetchAll fetches every spec and returns results in input order
func (b *BatchFetcher) FetchAll(ctx context.Context, specs []model.SourceSpec) []FetchResult {
	if len(specs) == 0 {
		return []FetchResult{}
	}

	jobs := make([]Job[FetchResult], len(specs))
	for i, spec := range specs {
		spec := spec
		jobs[i] = JobFunc[FetchResult](func(ctx context.Context) FetchResult {
			start := time.Now()
			if b.limiter != nil {
				if err := b.limiter.Wait(ctx, spec.Locator); err != nil {
					return FetchResult{Spec: spec, Skipped: true, Duration: time.Since(start)}
				}
			}
			doc := b.fetcher.Fetch(ctx, spec)
			return FetchResult{Spec: spec, Document: doc, Duration: time.Since(start)}
		})
	}

	results, ok := Run(ctx, b.concurrency, jobs)
	for i := range results {
		if !ok[i] {
			results[i] = FetchResult{Spec: specs[i], Skipped: true}
		}
	}
	return results
}

// ReadSourcesFromFile reads one source per line as "<locator>" or "<type> <locator>".
// Blank lines and # comments are skipped; duplicates are dropped.
func ReadSourcesFromFile(filePath string) ([]model.SourceSpec, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var specs []model.SourceSpec
	seen := make(map[model.SourceSpec]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		spec := ParseSourceLine(line)
		if !seen[spec] {
			seen[spec] = true
			specs = append(specs, spec)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return specs, nil
}

// ParseSourceLine parses "<locator>" or "<type> <locator>"
func ParseSourceLine(line string) model.SourceSpec {
	fields := strings.Fields(line)
	if len(fields) >= 2 {
		return model.SourceSpec{
			Type:    model.ParseSourceType(strings.ToLower(fields[0])),
			Locator: strings.Join(fields[1:], " "),
		}
	}
	return model.SourceSpec{Type: InferSourceType(line), Locator: line}
}

// InferSourceType guesses a type for an untyped locator
func InferSourceType(locator string) model.SourceType {
	lower := strings.ToLower(locator)
	switch {
	case !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://"):
		return model.SourceFile
	case strings.Contains(lower, "wiktionary.org"):
		return model.SourceWiktionary
	case strings.Contains(lower, "wikipedia.org"):
		return model.SourceWikipedia
	case strings.Contains(lower, "youtube.com") || strings.Contains(lower, "youtu.be"):
		return model.SourceYouTube
	case strings.HasSuffix(lower, ".rss") || strings.HasSuffix(lower, ".atom") ||
		strings.Contains(lower, "/feed") || strings.Contains(lower, "rss"):
		return model.SourceRSS
	case strings.HasSuffix(lower, ".json") || strings.Contains(lower, "/api/"):
		return model.SourceAPI
	default:
		return model.SourceHTML
	}
}
