package llm

import (
	"fmt"
	"strings"
)

// ErrUnsupportedProvider is returned by NewProvider for a provider name it
// cannot map to an OpenAI-compatible endpoint.
type ErrUnsupportedProvider struct {
	Provider string
}

func (e ErrUnsupportedProvider) Error() string {
	return fmt.Sprintf("unsupported LLM provider %q (supported: %s)", e.Provider, strings.Join(SupportedProviders(), ", "))
}
