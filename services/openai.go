package services

import (
	"os"
	"sync"

	"github.com/sashabaranov/go-openai"
)

// DefaultOpenAIClient returns the shared client configured from the
// environment, or nil when OPENAI_API_KEY is unset. Callers treat a nil
// client as "remote inference unavailable" rather than an error.
var DefaultOpenAIClient = sync.OnceValue(func() *openai.Client {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.BaseURL = baseURL
	}

	return openai.NewClientWithConfig(config)
})
