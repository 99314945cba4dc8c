// Package predict talks to the external prediction service: it asks for box
// prediction recalculation after layout parameter changes and exposes a
// health probe. The service trains and stores classifier models itself; this
// package never creates one.
package predict

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/banshee-data/caption.review/internal/httputil"
	"github.com/banshee-data/caption.review/internal/version"
)

// Client provides HTTP operations against the prediction service.
type Client struct {
	HTTPClient httputil.HTTPClient
	BaseURL    string
}

// NewClient creates a prediction service client.
func NewClient(httpClient httputil.HTTPClient, baseURL string) *Client {
	if httpClient == nil {
		httpClient = httputil.NewStandardClient(&http.Client{Timeout: 10 * time.Second})
	}
	return &Client{
		HTTPClient: httpClient,
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// RecalculatePredictions asks the service to recompute caption predictions
// for one video. The service answers before the recomputation finishes, so a
// non-error return only means the request was accepted.
func (c *Client) RecalculatePredictions(videoID string) error {
	payload := map[string]string{"video_id": videoID}
	data, _ := json.Marshal(payload)

	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/api/predictions/recalculate", c.BaseURL), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Health checks the prediction service's health endpoint.
func (c *Client) Health() error {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/healthz", c.BaseURL), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
