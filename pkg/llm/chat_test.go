package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xhad/prove/pkg/llm"
)

func TestNewWithConfig(t *testing.T) {
	config := llm.ChatConfig{
		Model:       "testmodel",
		Temperature: 0.5,
		MaxTokens:   1000,
		BaseURL:     "http://localhost:1234",
	}
	engine, err := llm.NewWithConfig(config)
	assert.NoError(t, err)
	assert.NotNil(t, engine)
}

func TestNewWithConfigInvalidTemperature(t *testing.T) {
	_, err := llm.NewWithConfig(llm.ChatConfig{Temperature: 1.5})
	assert.Error(t, err)

	_, err = llm.NewWithConfig(llm.ChatConfig{Temperature: 0})
	assert.Error(t, err)
}

func TestNewWithConfigNegativeMaxTokens(t *testing.T) {
	_, err := llm.NewWithConfig(llm.ChatConfig{
		Temperature: 0.7,
		MaxTokens:   -1,
	})
	assert.Error(t, err)
}

func TestAnalyzeNoStudies(t *testing.T) {
	engine, err := llm.NewWithConfig(llm.ChatConfig{Temperature: 0.7})
	assert.NoError(t, err)

	_, err = engine.Analyze("Is coffee good for you?", nil)
	assert.Error(t, err)
}
