package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPPublisher uploads objects with HTTP PUT to a blob store endpoint
type HTTPPublisher struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPPublisher creates a publisher for baseURL. A non-empty token is sent as a
// bearer credential.
func NewHTTPPublisher(baseURL, token string) *HTTPPublisher {
	return &HTTPPublisher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Publish PUTs body to baseURL/key
func (p *HTTPPublisher) Publish(ctx context.Context, key string, body []byte) error {
	url := p.baseURL + "/" + strings.TrimLeft(key, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "public, max-age=86400")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call blob store: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("blob store error: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}
