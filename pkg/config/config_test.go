package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
llm:
  base_url: "http://localhost:11434"
  model: "mistral"
  max_tokens: 1000
  temperature: 0.5

embedding:
  model: "nomic-embed-text:latest"
  vector_dim: 768

database:
  url: "postgres://localhost:5432/test"
  table_name: "test_studies"
  page_size: 20

sources:
  arxiv_url: "http://localhost:9100/api/query"
  rate_limit: 2
  rate_window_ms: 500
  results_per_source: 7
  timeout_seconds: 10

search:
  match_threshold: 0.8
  match_count: 3
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	// Test loading config
	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	// Verify loaded values
	assert.Equal(t, "http://localhost:11434", config.LLM.BaseURL)
	assert.Equal(t, "mistral", config.LLM.Model)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, 768, config.Embedding.VectorDim)
	assert.Equal(t, "postgres://localhost:5432/test", config.Database.URL)
	assert.Equal(t, "test_studies", config.Database.TableName)
	assert.Equal(t, 20, config.Database.PageSize)
	assert.Equal(t, "http://localhost:9100/api/query", config.Sources.ArxivURL)
	assert.Equal(t, 2, config.Sources.RateLimit)
	assert.Equal(t, 7, config.Sources.ResultsPerSource)
	assert.Equal(t, float32(0.8), config.Search.MatchThreshold)
	assert.Equal(t, 3, config.Search.MatchCount)
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	assert.Nil(t, config)
}

func TestApplyDefaults(t *testing.T) {
	config := &Config{}
	applyDefaults(config)

	assert.Equal(t, "mistral", config.LLM.Model)
	assert.Equal(t, 1536, config.Embedding.VectorDim)
	assert.Equal(t, "studies", config.Database.TableName)
	assert.Equal(t, 10, config.Database.PageSize)
	assert.Equal(t, 3, config.Sources.RateLimit)
	assert.Equal(t, 1000, config.Sources.RateWindowMillis)
	assert.Equal(t, 5, config.Sources.ResultsPerSource)
	assert.Equal(t, float32(0.7), config.Search.MatchThreshold)
	assert.Equal(t, 5, config.Search.MatchCount)
}

func TestConfigValidation(t *testing.T) {
	valid := &Config{}
	applyDefaults(valid)
	assert.Empty(t, valid.Validate())

	invalid := &Config{}
	applyDefaults(invalid)
	invalid.LLM.MaxTokens = 5000
	invalid.LLM.Temperature = 3.0
	invalid.Embedding.VectorDim = -1
	invalid.Sources.RateLimit = 0
	invalid.Search.MatchThreshold = 2

	errs := invalid.Validate()
	assert.Len(t, errs, 5)

	fields := make(map[string]bool)
	for _, e := range errs {
		fields[e.Field] = true
		assert.NotEmpty(t, e.Error())
	}
	assert.True(t, fields["llm.max_tokens"])
	assert.True(t, fields["sources.rate_limit"])
}
