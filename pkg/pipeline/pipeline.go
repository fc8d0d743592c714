package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/xhad/prove/internal/models"
	"github.com/xhad/prove/internal/types"
	"github.com/xhad/prove/pkg/sources"
)

type PipelineConfig struct {
	Sources   []types.Source
	Embedder  types.Embedder
	Store     types.StudyStore
	PerSource int // results fetched from each source per page
	PageSize  int // combined page size reported to callers
}

// Pipeline runs the fetch-normalize-embed-store flow and fronts the two
// store query modes.
type Pipeline struct {
	config PipelineConfig
}

func NewWithConfig(config PipelineConfig) (*Pipeline, error) {
	if config.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if config.PerSource == 0 {
		config.PerSource = 5
	}
	if config.PageSize == 0 {
		config.PageSize = 10
	}

	return &Pipeline{
		config: config,
	}, nil
}

// sourceResult is one branch of the fan-out join. Branches fail
// independently; only the successful ones are merged.
type sourceResult struct {
	name    string
	studies []models.Study
	total   int
	err     error
}

// FetchAndStore fetches one page of results from every configured source
// concurrently, merges and dedupes the successful branches, embeds the batch,
// persists it, and returns the combined page. The fetch fails only when every
// source fails.
func (p *Pipeline) FetchAndStore(ctx context.Context, term string, page int) (models.SearchResultPage, error) {
	if strings.TrimSpace(term) == "" {
		return models.SearchResultPage{}, fmt.Errorf("blank search term: %w", ErrValidation)
	}
	if page < 0 {
		page = 0
	}
	if len(p.config.Sources) == 0 {
		return models.SearchResultPage{}, fmt.Errorf("no sources configured: %w", ErrUpstream)
	}

	results := make([]sourceResult, len(p.config.Sources))
	var wg sync.WaitGroup
	for i, src := range p.config.Sources {
		wg.Add(1)
		go func(i int, src types.Source) {
			defer wg.Done()
			studies, total, err := src.Search(ctx, term, page, p.config.PerSource)
			results[i] = sourceResult{
				name:    src.Name(),
				studies: studies,
				total:   total,
				err:     err,
			}
		}(i, src)
	}
	wg.Wait()

	var batches [][]models.Study
	var total int
	var firstErr error
	succeeded := 0
	for _, r := range results {
		if r.err != nil {
			log.Printf("source %s failed: %v", r.name, r.err)
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		succeeded++
		batches = append(batches, r.studies)
		total += r.total
	}

	if succeeded == 0 {
		return models.SearchResultPage{}, fmt.Errorf("all sources failed: %v: %w", firstErr, ErrUpstream)
	}

	studies := sources.Merge(batches...)

	if p.config.Embedder != nil {
		studies = p.config.Embedder.EmbedStudies(ctx, studies)
	}

	if len(studies) > 0 {
		if err := p.config.Store.Upsert(ctx, studies); err != nil {
			return models.SearchResultPage{}, fmt.Errorf("failed to persist studies: %v: %w", err, ErrStore)
		}
	}

	return models.NewSearchResultPage(studies, total, page, p.config.PageSize), nil
}

// QueryKeyword answers a store-only keyword query.
func (p *Pipeline) QueryKeyword(ctx context.Context, term string, page int) (models.SearchResultPage, error) {
	if strings.TrimSpace(term) == "" {
		return models.SearchResultPage{}, fmt.Errorf("blank search term: %w", ErrValidation)
	}

	result, err := p.config.Store.SearchKeyword(ctx, term, page)
	if err != nil {
		return models.SearchResultPage{}, fmt.Errorf("keyword query failed: %v: %w", err, ErrStore)
	}
	return result, nil
}

// QuerySemantic answers a store-only similarity query. Zero threshold and
// limit fall back to the store defaults.
func (p *Pipeline) QuerySemantic(ctx context.Context, embedding []float32, threshold float32, limit int) ([]models.Study, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("empty query embedding: %w", ErrValidation)
	}

	studies, err := p.config.Store.SearchSimilar(ctx, embedding, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("semantic query failed: %v: %w", err, ErrStore)
	}
	return studies, nil
}
