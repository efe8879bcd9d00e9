package llm

import (
	"context"
	"sort"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Provider interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// Config selects an OpenAI-compatible endpoint. APIKey is the decrypted
// credential and is filled in per request, never from configuration.
type Config struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

// endpoints maps each supported provider to its default OpenAI-compatible base URL.
var endpoints = map[string]string{
	"openai":          defaultOpenAIBaseURL,
	"openrouter":      "https://openrouter.ai/api/v1",
	"kimi-for-coding": "https://api.kimi.com/coding/v1",
	"moonshot-ai":     "https://api.moonshot.ai/v1",
}

func SupportedProviders() []string {
	names := make([]string, 0, len(endpoints))
	for name := range endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func NewProvider(cfg Config) (Provider, error) {
	name := cfg.Provider
	if name == "" {
		name = "openai"
	}
	baseURL, ok := endpoints[name]
	if !ok {
		return nil, ErrUnsupportedProvider{Provider: cfg.Provider}
	}
	return NewOpenAIProvider(OpenAIConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: defaultIfEmpty(cfg.BaseURL, baseURL),
	}), nil
}

// Factory returns a constructor that binds cfg to a credential resolved at call time.
func Factory(cfg Config) func(apiKey string) (Provider, error) {
	return func(apiKey string) (Provider, error) {
		withKey := cfg
		withKey.APIKey = apiKey
		return NewProvider(withKey)
	}
}

func defaultIfEmpty(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
