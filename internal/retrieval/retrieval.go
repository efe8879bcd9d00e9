package retrieval

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Keyring-Network/keyring-scout/internal/upstream"
)

const (
	DefaultBaseURL = "https://s.jina.ai"
	serviceName    = "retrieval"
	maxBodyBytes   = 4 << 20
)

type Config struct {
	BaseURL string
}

// Client fetches raw search results as text. The query is escaped into the
// path and no credential is sent.
type Client struct {
	baseURL string
	client  *http.Client
}

func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

func (c *Client) Retrieve(ctx context.Context, query string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(query), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", upstream.Transport(serviceName, err)
	}
	defer resp.Body.Close()
	if err := upstream.CheckStatus(serviceName, resp.StatusCode, resp.Status); err != nil {
		return "", err
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", upstream.Transport(serviceName, err)
	}
	return string(body), nil
}
