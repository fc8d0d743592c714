package models

import "time"

const (
	SourceArxiv  = "arXiv"
	SourcePubMed = "PubMed"
)

// Study is the canonical record shape every source adapter normalizes into.
type Study struct {
	ID        int64     `json:"id,omitempty"`
	Title     string    `json:"title"`
	Abstract  string    `json:"abstract"`
	Authors   string    `json:"authors"`
	Year      int       `json:"year"`
	URL       string    `json:"url"`
	Source    string    `json:"source"`
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Key returns the natural key used to detect duplicate studies across
// sources. Two studies with the same title and abstract are the same study.
func (s Study) Key() string {
	return s.Title + "\x00" + s.Abstract
}

type SearchResultPage struct {
	Studies      []Study `json:"studies"`
	TotalResults int     `json:"totalResults"`
	CurrentPage  int     `json:"currentPage"`
	TotalPages   int     `json:"totalPages"`
}

// NewSearchResultPage builds a page over a result window. CurrentPage is
// zero-indexed and TotalPages is always ceil(totalResults / pageSize).
func NewSearchResultPage(studies []Study, totalResults, currentPage, pageSize int) SearchResultPage {
	if pageSize < 1 {
		pageSize = 10
	}
	if totalResults < 0 {
		totalResults = 0
	}
	if studies == nil {
		studies = []Study{}
	}
	return SearchResultPage{
		Studies:      studies,
		TotalResults: totalResults,
		CurrentPage:  currentPage,
		TotalPages:   (totalResults + pageSize - 1) / pageSize,
	}
}
