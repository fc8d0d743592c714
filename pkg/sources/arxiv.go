package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xhad/prove/internal/models"
	"github.com/xhad/prove/pkg/throttle"
)

type ArxivConfig struct {
	BaseURL string
	Timeout time.Duration
	Limiter *throttle.Throttle
}

// Arxiv fetches studies from the arXiv query API and normalizes its Atom
// feed into the canonical Study shape.
type Arxiv struct {
	config  ArxivConfig
	client  *http.Client
	limiter *throttle.Throttle
}

func NewArxivWithConfig(config ArxivConfig) *Arxiv {
	if config.BaseURL == "" {
		config.BaseURL = "https://export.arxiv.org/api/query"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Limiter == nil {
		config.Limiter = throttle.New()
	}

	return &Arxiv{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: config.Limiter,
	}
}

func NewArxiv() *Arxiv {
	return NewArxivWithConfig(ArxivConfig{})
}

func (a *Arxiv) Name() string {
	return models.SourceArxiv
}

// arXiv Atom feed structures.
type arxivFeed struct {
	TotalResults int          `xml:"totalResults"`
	Entries      []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	Authors   []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

// Search queries the arXiv endpoint for one page of results. The reported
// total may be nonzero even when the page itself carries no entries.
func (a *Arxiv) Search(ctx context.Context, term string, page, perPage int) ([]models.Study, int, error) {
	if perPage < 1 {
		perPage = 10
	}

	query := strings.Join(strings.Fields(term), "+")
	requestURL := fmt.Sprintf("%s?search_query=all:%s&start=%d&max_results=%d",
		a.config.BaseURL, query, page*perPage, perPage)

	host := requestHost(requestURL)
	if err := a.limiter.Wait(ctx, host); err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build arXiv request: %v", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("arXiv request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("arXiv returned status code %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, 0, fmt.Errorf("failed to parse arXiv feed: %v", err)
	}

	studies := make([]models.Study, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		studies = append(studies, entry.toStudy())
	}

	return studies, feed.TotalResults, nil
}

func (e arxivEntry) toStudy() models.Study {
	abstract := strings.TrimSpace(e.Summary)
	if abstract == "" {
		abstract = "No abstract available"
	}

	var names []string
	for _, author := range e.Authors {
		if name := strings.TrimSpace(author.Name); name != "" {
			names = append(names, name)
		}
	}
	authors := strings.Join(names, ", ")
	if authors == "" {
		authors = "Unknown Authors"
	}

	year := time.Now().Year()
	if published, err := time.Parse(time.RFC3339, e.Published); err == nil {
		year = published.Year()
	}

	return models.Study{
		Title:    strings.TrimSpace(e.Title),
		Abstract: abstract,
		Authors:  authors,
		Year:     year,
		URL:      e.ID,
		Source:   models.SourceArxiv,
	}
}

func requestHost(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return parsed.Host
}
