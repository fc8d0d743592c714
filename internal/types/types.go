package types

import (
	"context"

	"github.com/xhad/prove/internal/models"
)

// Core interfaces
type Source interface {
	// Name returns the source tag written into each Study (e.g. "arXiv").
	Name() string

	// Search fetches up to perPage normalized studies for the zero-indexed
	// page, returning the source's total match count alongside the page.
	Search(ctx context.Context, term string, page, perPage int) ([]models.Study, int, error)
}

type Embedder interface {
	// EmbedStudies attaches an abstract embedding to each study. Items whose
	// embedding call fails are returned unchanged; output always has the same
	// length and order as the input.
	EmbedStudies(ctx context.Context, studies []models.Study) []models.Study

	// EmbedQuery embeds a free-text query for similarity search.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type StudyStore interface {
	Upsert(ctx context.Context, studies []models.Study) error
	SearchKeyword(ctx context.Context, term string, page int) (models.SearchResultPage, error)
	SearchSimilar(ctx context.Context, embedding []float32, threshold float32, limit int) ([]models.Study, error)
	Recent(ctx context.Context, limit int) ([]models.Study, error)
	Close()
}
