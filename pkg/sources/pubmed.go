package sources

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/xhad/prove/internal/models"
	"github.com/xhad/prove/pkg/throttle"
)

type PubMedConfig struct {
	SearchURL string
	FetchURL  string
	Timeout   time.Duration
	Limiter   *throttle.Throttle
}

// PubMed fetches studies through the NCBI E-utilities in two phases: an
// esearch call for PMIDs and a bulk efetch call for full article records.
type PubMed struct {
	config  PubMedConfig
	client  *http.Client
	limiter *throttle.Throttle
}

func NewPubMedWithConfig(config PubMedConfig) *PubMed {
	if config.SearchURL == "" {
		config.SearchURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"
	}
	if config.FetchURL == "" {
		config.FetchURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Limiter == nil {
		config.Limiter = throttle.New()
	}

	return &PubMed{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: config.Limiter,
	}
}

func NewPubMed() *PubMed {
	return NewPubMedWithConfig(PubMedConfig{})
}

func (p *PubMed) Name() string {
	return models.SourcePubMed
}

type esearchResponse struct {
	Result struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// PubMed efetch XML structures. Journal is a pointer so a record missing
// its journal metadata is detectable and can be dropped.
type pubmedArticleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	MedlineCitation struct {
		PMID    string `xml:"PMID"`
		Article struct {
			ArticleTitle string `xml:"ArticleTitle"`
			Abstract     *struct {
				Texts []string `xml:"AbstractText"`
			} `xml:"Abstract"`
			AuthorList *struct {
				Authors []pubmedAuthor `xml:"Author"`
			} `xml:"AuthorList"`
			Journal *struct {
				JournalIssue struct {
					PubDate struct {
						Year        string `xml:"Year"`
						MedlineDate string `xml:"MedlineDate"`
					} `xml:"PubDate"`
				} `xml:"JournalIssue"`
			} `xml:"Journal"`
		} `xml:"Article"`
	} `xml:"MedlineCitation"`
}

type pubmedAuthor struct {
	LastName string `xml:"LastName"`
	ForeName string `xml:"ForeName"`
}

// Search runs the two-phase PubMed lookup. Individual malformed articles are
// dropped with a warning; the rest of the batch still succeeds.
func (p *PubMed) Search(ctx context.Context, term string, page, perPage int) ([]models.Study, int, error) {
	if perPage < 1 {
		perPage = 10
	}

	ids, total, err := p.searchIDs(ctx, term, page, perPage)
	if err != nil {
		return nil, 0, err
	}
	if len(ids) == 0 {
		return []models.Study{}, 0, nil
	}

	articles, err := p.fetchArticles(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	studies := make([]models.Study, 0, len(articles))
	for _, article := range articles {
		study, err := article.toStudy()
		if err != nil {
			log.Printf("dropping malformed PubMed article: %v", err)
			continue
		}
		studies = append(studies, study)
	}

	return studies, total, nil
}

func (p *PubMed) searchIDs(ctx context.Context, term string, page, perPage int) ([]string, int, error) {
	searchURL := fmt.Sprintf("%s?db=pubmed&term=%s&retmode=json&retstart=%d&retmax=%d",
		p.config.SearchURL, url.QueryEscape(term), page*perPage, perPage)

	if err := p.limiter.Wait(ctx, requestHost(searchURL)); err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build PubMed search request: %v", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("PubMed search failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("PubMed search returned status code %d", resp.StatusCode)
	}

	var parsed esearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, 0, fmt.Errorf("failed to parse PubMed search response: %v", err)
	}

	total, _ := strconv.Atoi(parsed.Result.Count)
	return parsed.Result.IDList, total, nil
}

func (p *PubMed) fetchArticles(ctx context.Context, ids []string) ([]pubmedArticle, error) {
	fetchURL := fmt.Sprintf("%s?db=pubmed&id=%s&retmode=xml",
		p.config.FetchURL, strings.Join(ids, ","))

	if err := p.limiter.Wait(ctx, requestHost(fetchURL)); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build PubMed fetch request: %v", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("PubMed fetch failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("PubMed fetch returned status code %d", resp.StatusCode)
	}

	var set pubmedArticleSet
	if err := xml.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("failed to parse PubMed articles: %v", err)
	}

	return set.Articles, nil
}

func (a pubmedArticle) toStudy() (models.Study, error) {
	citation := a.MedlineCitation
	article := citation.Article

	pmid := strings.TrimSpace(citation.PMID)
	if pmid == "" {
		return models.Study{}, fmt.Errorf("article has no PMID")
	}
	if article.Journal == nil {
		return models.Study{}, fmt.Errorf("article %s has no journal metadata", pmid)
	}

	title := strings.TrimSpace(article.ArticleTitle)
	if title == "" {
		title = "No title available"
	}

	abstract := "No abstract available"
	if article.Abstract != nil {
		var segments []string
		for _, text := range article.Abstract.Texts {
			if trimmed := strings.TrimSpace(text); trimmed != "" {
				segments = append(segments, trimmed)
			}
		}
		if len(segments) > 0 {
			abstract = strings.Join(segments, " ")
		}
	}

	authors := "Unknown Authors"
	if article.AuthorList != nil {
		var names []string
		for _, author := range article.AuthorList.Authors {
			name := strings.TrimSpace(author.LastName + " " + author.ForeName)
			if name != "" {
				names = append(names, name)
			}
		}
		if len(names) > 0 {
			authors = strings.Join(names, ", ")
		}
	}

	pubDate := article.Journal.JournalIssue.PubDate
	year := time.Now().Year()
	if parsed, err := strconv.Atoi(strings.TrimSpace(pubDate.Year)); err == nil {
		year = parsed
	} else if medline := strings.TrimSpace(pubDate.MedlineDate); len(medline) >= 4 {
		if parsed, err := strconv.Atoi(medline[:4]); err == nil {
			year = parsed
		}
	}

	return models.Study{
		Title:    title,
		Abstract: abstract,
		Authors:  authors,
		Year:     year,
		URL:      fmt.Sprintf("https://pubmed.ncbi.nlm.nih.gov/%s/", pmid),
		Source:   models.SourcePubMed,
	}, nil
}
