package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/xhad/prove/internal/models"
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
	BaseURL     string // Ollama server URL
}

const (
	searchTermsPrompt = "You are a research assistant helping to convert questions into scientific search terms. " +
		"Extract key concepts and return them as search terms. Focus on scientific terminology."

	analyzePrompt = `You are an expert at winning arguments using scientific evidence.
Your goal is to provide clear, convincing responses that someone can use immediately in a conversation.
Focus on being persuasive while maintaining scientific accuracy.
Always cite the specific studies you're referencing in your response.`
)

// ChatEngine is an engine that uses an LLM to generate chat responses.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	if config.Model == "" {
		config.Model = "mistral" // Default Ollama model
	}
	if config.Temperature <= 0 || config.Temperature > 1 {
		return nil, fmt.Errorf("temperature must be between 0 and 1")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 1000
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434" // Default Ollama URL
	}

	llm, err := ollama.New(ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &ChatEngine{
		config: config,
		llm:    llm,
	}, nil
}

// ProcessQuestion converts a natural-language question into scientific
// search terms suitable for the literature sources.
func (ce *ChatEngine) ProcessQuestion(question string) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, searchTermsPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman,
			fmt.Sprintf("Convert this question into search terms: %q", question)),
	}

	response, err := ce.llm.GenerateContent(context.Background(), content,
		llms.WithTemperature(0.3),
		llms.WithMaxTokens(100))
	if err != nil {
		return "", fmt.Errorf("question processing error: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response from LLM")
	}

	return strings.TrimSpace(response.Choices[0].Content), nil
}

// Analyze generates a persuasive, citation-backed answer to the question
// from the supplied studies.
func (ce *ChatEngine) Analyze(question string, studies []models.Study) (string, error) {
	if len(studies) == 0 {
		return "", fmt.Errorf("no studies to analyze")
	}

	var studiesText strings.Builder
	for i, study := range studies {
		fmt.Fprintf(&studiesText, "Study %d:\nTitle: %s\nAbstract: %s\nYear: %d\nAuthors: %s\nSource: %s\n\n",
			i+1, study.Title, study.Abstract, study.Year, study.Authors, study.Source)
	}

	userPrompt := fmt.Sprintf(`Question: %q

Available Studies:

%s
Please provide:
1. Quick Response (2-3 sentences to say immediately)
2. Key Scientific Evidence:
   - Most convincing statistics/findings from the provided studies
   - Specific citations to use (including authors and years)
3. Counter-Arguments:
   - How to handle common objections using the evidence
   - Fallback points from other studies if challenged
4. Expert Quotes:
   - Direct quotes from the studies that support your point

Format the response to be easily readable on a phone screen.`, question, studiesText.String())

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, analyzePrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	response, err := ce.llm.GenerateContent(context.Background(), content,
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens))
	if err != nil {
		return "", fmt.Errorf("analysis error: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response from LLM")
	}

	return response.Choices[0].Content, nil
}
