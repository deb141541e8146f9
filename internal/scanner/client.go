package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// AnalyzePath is the server endpoint analysis requests are posted to.
const AnalyzePath = "/analyze"

type analyzeRequest struct {
	URL string `json:"url"`
}

// Client posts URLs to a qrguard server.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client for the server at baseURL.
// A nil httpClient means http.DefaultClient. No timeout is added here;
// callers bound requests through the context.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: httpClient,
	}
}

// Fetch sends the URL as-is and decodes the JSON reply.
// The body is decoded whatever the status code is.
func (c *Client) Fetch(ctx context.Context, url string) (AnalysisResponse, error) {
	var out AnalysisResponse

	body, err := json.Marshal(analyzeRequest{URL: url})
	if err != nil {
		return out, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+AnalyzePath, bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return out, fmt.Errorf("failed to call analyze endpoint: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("failed to decode analyze response (status %d): %w", resp.StatusCode, err)
	}

	slog.DebugContext(ctx, "Analyze response received",
		slog.String("url", url),
		slog.Int("status", resp.StatusCode),
	)

	return out, nil
}

// Analyze sends the URL and classifies the reply.
func (c *Client) Analyze(ctx context.Context, url string) (Outcome, error) {
	resp, err := c.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	if DroppedResult(resp) {
		slog.WarnContext(ctx, "Login prompt hides analysis result",
			slog.String("url", url),
			slog.String("result", *resp.Result),
		)
	}

	return Classify(resp), nil
}

// AnalyzeAndDispatch runs Analyze and presents the outcome.
func (c *Client) AnalyzeAndDispatch(ctx context.Context, url string, p Presenter) error {
	o, err := c.Analyze(ctx, url)
	if err != nil {
		return err
	}
	Dispatch(o, p)
	return nil
}
