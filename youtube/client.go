// Package youtube provides thin HTTP clients for the external YouTube
// capabilities: keyword search, video metadata, and caption (timedtext)
// retrieval.
package youtube

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const (
	defaultDataAPIURL   = "https://www.googleapis.com/youtube/v3"
	defaultTimedtextURL = "https://www.youtube.com/api/timedtext"
)

type Client struct {
	apiKey       string
	httpClient   *http.Client
	dataAPIURL   string
	timedtextURL string
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		dataAPIURL:   defaultDataAPIURL,
		timedtextURL: defaultTimedtextURL,
	}
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
