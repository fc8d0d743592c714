package llm

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/xhad/prove/internal/models"
)

type EmbedderConfig struct {
	Model   string
	BaseURL string // Ollama server URL
}

// embeddingClient is the slice of the Ollama client the embedder needs.
type embeddingClient interface {
	CreateEmbedding(ctx context.Context, inputTexts []string) ([][]float32, error)
}

// Embedder computes abstract embeddings through a hosted embedding model.
type Embedder struct {
	config EmbedderConfig
	client embeddingClient
}

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Model == "" {
		config.Model = "nomic-embed-text:latest" // Default Ollama model
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434" // Default Ollama URL
	}

	client, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %v", err)
	}

	return &Embedder{
		config: config,
		client: client,
	}, nil
}

// EmbedStudies embeds every study's abstract concurrently. A failed call
// leaves that study without an embedding instead of aborting the batch, and
// the output keeps the input's order and length.
func (e *Embedder) EmbedStudies(ctx context.Context, studies []models.Study) []models.Study {
	out := make([]models.Study, len(studies))

	var wg sync.WaitGroup
	for i, study := range studies {
		wg.Add(1)
		go func(i int, study models.Study) {
			defer wg.Done()

			vectors, err := e.client.CreateEmbedding(ctx, []string{study.Abstract})
			if err != nil || len(vectors) == 0 {
				log.Printf("embedding failed for %q: %v", study.Title, err)
				out[i] = study
				return
			}

			study.Embedding = vectors[0]
			out[i] = study
		}(i, study)
	}
	wg.Wait()

	return out
}

// EmbedQuery embeds a free-text query for similarity search.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.client.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %v", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedding model returned no vectors")
	}
	return vectors[0], nil
}
