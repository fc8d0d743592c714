package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate LLM config
	if c.LLM.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "Ollama base URL is required",
		})
	} else if _, err := url.Parse(c.LLM.BaseURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid Ollama base URL",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	// Validate Embedding config
	if c.Embedding.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "embedding.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	// Validate Database config
	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.PageSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.page_size",
			Message: "page_size must be positive",
		})
	}

	// Validate Sources config
	if c.Sources.RateLimit < 1 {
		errors = append(errors, ValidationError{
			Field:   "sources.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.Sources.RateWindowMillis < 1 {
		errors = append(errors, ValidationError{
			Field:   "sources.rate_window_ms",
			Message: "rate_window_ms must be positive",
		})
	}

	if c.Sources.ResultsPerSource < 1 {
		errors = append(errors, ValidationError{
			Field:   "sources.results_per_source",
			Message: "results_per_source must be positive",
		})
	}

	if c.Sources.TimeoutSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "sources.timeout_seconds",
			Message: "timeout_seconds must be positive",
		})
	}

	// Validate Search config
	if c.Search.MatchThreshold < 0 || c.Search.MatchThreshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "search.match_threshold",
			Message: "match_threshold must be between 0 and 1",
		})
	}

	if c.Search.MatchCount < 1 {
		errors = append(errors, ValidationError{
			Field:   "search.match_count",
			Message: "match_count must be positive",
		})
	}

	return errors
}
