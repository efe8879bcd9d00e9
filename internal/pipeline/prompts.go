package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/Keyring-Network/keyring-scout/internal/llm"
	"github.com/Keyring-Network/keyring-scout/internal/upstream"
)

const synthesizeInstruction = `You convert a research request into a web search query.
Reply with the search query terms only. Do not add explanations, labels, quotes or formatting.`

const distillInstruction = `You extract research material from raw web search results.
Keep only content relevant to the research request, in the order it appears in the results.
Exclude images, image links and any commentary of your own.
For every excerpt you keep, always retain its source title and URL when the results include them.
Reply in plain text.`

func synthesizeMessages(input string) []llm.Message {
	return []llm.Message{
		{Role: "system", Content: synthesizeInstruction},
		{Role: "user", Content: input},
	}
}

func distillMessages(input string, raw string) []llm.Message {
	return []llm.Message{
		{Role: "system", Content: distillInstruction},
		{Role: "user", Content: fmt.Sprintf("Research request: %s\n\nSearch results:\n%s", input, raw)},
	}
}

func SynthesizeQuery(ctx context.Context, provider llm.Provider, input string) (string, error) {
	return provider.Generate(ctx, synthesizeMessages(input))
}

// PrepareQuery sanitizes a synthesized query. A query with nothing left is
// treated as an empty model response.
func PrepareQuery(query string) (string, error) {
	sanitized := Sanitize(query)
	if sanitized == "" {
		return "", fmt.Errorf("%w: synthesized query was empty after sanitization", upstream.ErrEmptyResponse)
	}
	return sanitized, nil
}

func Distill(ctx context.Context, provider llm.Provider, input string, raw string) (string, error) {
	return provider.Generate(ctx, distillMessages(input, raw))
}

// Sanitize strips quote, angle bracket, brace and bracket characters so the
// query cannot be read as markup downstream.
func Sanitize(query string) string {
	stripped := strings.Map(func(r rune) rune {
		switch r {
		case '"', '\'', '`', '<', '>', '{', '}', '[', ']':
			return -1
		}
		return r
	}, query)
	return strings.TrimSpace(stripped)
}
