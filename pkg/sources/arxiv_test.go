package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/prove/internal/models"
	"github.com/xhad/prove/pkg/throttle"
)

const arxivFeedFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/">
  <opensearch:totalResults>412</opensearch:totalResults>
  <entry>
    <id>http://arxiv.org/abs/2301.07041v1</id>
    <title>  Evidence for Dark Matter Halos  </title>
    <summary>
      We present observational evidence for dark matter halos around dwarf galaxies.
    </summary>
    <published>2023-01-17T12:00:00Z</published>
    <author><name>Vera Rubin</name></author>
    <author><name>Kent Ford</name></author>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2207.00123v2</id>
    <title>Galactic Rotation Curves Revisited</title>
    <summary>A reanalysis of rotation curve data.</summary>
    <published>2022-07-01T09:30:00Z</published>
    <author><name>Solo Author</name></author>
  </entry>
</feed>`

const arxivEmptyFeedFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/">
  <opensearch:totalResults>97</opensearch:totalResults>
</feed>`

func fastLimiter() *throttle.Throttle {
	return throttle.NewWithConfig(throttle.ThrottleConfig{
		Limit:    100,
		Interval: time.Second,
	})
}

func TestArxivSearch(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/atom+xml")
		w.Write([]byte(arxivFeedFixture))
	}))
	defer server.Close()

	src := NewArxivWithConfig(ArxivConfig{
		BaseURL: server.URL,
		Limiter: fastLimiter(),
	})

	studies, total, err := src.Search(context.Background(), "dark matter halos", 1, 5)
	require.NoError(t, err)

	assert.Equal(t, 412, total)
	assert.Equal(t, "search_query=all:dark+matter+halos&start=5&max_results=5", gotQuery)

	require.Len(t, studies, 2)
	first := studies[0]
	assert.Equal(t, "Evidence for Dark Matter Halos", first.Title)
	assert.Equal(t, "We present observational evidence for dark matter halos around dwarf galaxies.", first.Abstract)
	assert.Equal(t, "Vera Rubin, Kent Ford", first.Authors)
	assert.Equal(t, 2023, first.Year)
	assert.Equal(t, "http://arxiv.org/abs/2301.07041v1", first.URL)
	assert.Equal(t, models.SourceArxiv, first.Source)

	assert.Equal(t, "Solo Author", studies[1].Authors)
	assert.Equal(t, 2022, studies[1].Year)
}

func TestArxivSearchNoEntries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(arxivEmptyFeedFixture))
	}))
	defer server.Close()

	src := NewArxivWithConfig(ArxivConfig{
		BaseURL: server.URL,
		Limiter: fastLimiter(),
	})

	studies, total, err := src.Search(context.Background(), "neutrino", 0, 5)
	require.NoError(t, err)

	// Pagination can exclude all entries while the total stays nonzero.
	assert.Empty(t, studies)
	assert.Equal(t, 97, total)
}

func TestArxivSearchUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	src := NewArxivWithConfig(ArxivConfig{
		BaseURL: server.URL,
		Limiter: fastLimiter(),
	})

	_, _, err := src.Search(context.Background(), "neutrino", 0, 5)
	assert.Error(t, err)
}

func TestArxivSearchParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not xml at all"))
	}))
	defer server.Close()

	src := NewArxivWithConfig(ArxivConfig{
		BaseURL: server.URL,
		Limiter: fastLimiter(),
	})

	_, _, err := src.Search(context.Background(), "neutrino", 0, 5)
	assert.Error(t, err)
}

func TestArxivName(t *testing.T) {
	assert.Equal(t, "arXiv", NewArxiv().Name())
}
