package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		BaseURL     string  `yaml:"base_url"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"llm"`

	Embedding struct {
		Model     string `yaml:"model"`
		VectorDim int    `yaml:"vector_dim"`
	} `yaml:"embedding"`

	Database struct {
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
		PageSize  int    `yaml:"page_size"`
	} `yaml:"database"`

	Sources struct {
		ArxivURL         string `yaml:"arxiv_url"`
		PubmedSearchURL  string `yaml:"pubmed_search_url"`
		PubmedFetchURL   string `yaml:"pubmed_fetch_url"`
		RateLimit        int    `yaml:"rate_limit"`
		RateWindowMillis int    `yaml:"rate_window_ms"`
		ResultsPerSource int    `yaml:"results_per_source"`
		TimeoutSeconds   int    `yaml:"timeout_seconds"`
	} `yaml:"sources"`

	Search struct {
		MatchThreshold float32 `yaml:"match_threshold"`
		MatchCount     int     `yaml:"match_count"`
	} `yaml:"search"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/prove/config.yaml"),
			"/etc/prove/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Model == "" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 1000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.7
	}
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}

	if config.Embedding.Model == "" {
		config.Embedding.Model = "nomic-embed-text:latest"
	}
	if config.Embedding.VectorDim == 0 {
		config.Embedding.VectorDim = 1536
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "studies"
	}
	if config.Database.PageSize == 0 {
		config.Database.PageSize = 10
	}

	if config.Sources.ArxivURL == "" {
		config.Sources.ArxivURL = "https://export.arxiv.org/api/query"
	}
	if config.Sources.PubmedSearchURL == "" {
		config.Sources.PubmedSearchURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"
	}
	if config.Sources.PubmedFetchURL == "" {
		config.Sources.PubmedFetchURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"
	}
	if config.Sources.RateLimit == 0 {
		config.Sources.RateLimit = 3
	}
	if config.Sources.RateWindowMillis == 0 {
		config.Sources.RateWindowMillis = 1000
	}
	if config.Sources.ResultsPerSource == 0 {
		config.Sources.ResultsPerSource = 5
	}
	if config.Sources.TimeoutSeconds == 0 {
		config.Sources.TimeoutSeconds = 30
	}

	if config.Search.MatchThreshold == 0 {
		config.Search.MatchThreshold = 0.7
	}
	if config.Search.MatchCount == 0 {
		config.Search.MatchCount = 5
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
}
