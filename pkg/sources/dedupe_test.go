package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xhad/prove/internal/models"
)

func TestMerge(t *testing.T) {
	arxiv := []models.Study{
		{Title: "Dark Matter", Abstract: "Halos.", Source: models.SourceArxiv},
		{Title: "Neutrinos", Abstract: "Oscillations.", Source: models.SourceArxiv},
	}
	pubmed := []models.Study{
		{Title: "Dark Matter", Abstract: "Halos.", Source: models.SourcePubMed},
		{Title: "Microbiome", Abstract: "Cognition.", Source: models.SourcePubMed},
	}

	merged := Merge(arxiv, pubmed)

	assert.Len(t, merged, 3)
	// First occurrence wins, so the duplicate keeps its arXiv source tag.
	assert.Equal(t, models.SourceArxiv, merged[0].Source)
	assert.Equal(t, "Neutrinos", merged[1].Title)
	assert.Equal(t, "Microbiome", merged[2].Title)
}

func TestMergeSameTitleDifferentAbstract(t *testing.T) {
	merged := Merge([]models.Study{
		{Title: "Dark Matter", Abstract: "First abstract."},
		{Title: "Dark Matter", Abstract: "Second abstract."},
	})

	assert.Len(t, merged, 2, "the natural key is the title and abstract pair")
}

func TestMergeEmpty(t *testing.T) {
	assert.Empty(t, Merge())
	assert.Empty(t, Merge(nil, nil))
}
