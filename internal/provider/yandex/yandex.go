package yandex

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"kakdoma/internal/config"
	"kakdoma/internal/port"
	"kakdoma/internal/provider"
)

const apiURL = "https://vision.api.cloud.yandex.net/vision/v1/batchAnalyze"

func init() {
	provider.RegisterProvider("yandex", func(cfg *config.ProviderConfig) (port.OCRProvider, error) {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("yandex: api key is required")
		}
		return NewProvider(cfg), nil
	})
}

// Provider implements port.OCRProvider using the Yandex Vision batchAnalyze API.
type Provider struct {
	apiKey   string
	folderID string
	endpoint string
	client   *http.Client
}

// NewProvider creates a Yandex Vision provider from a provider config.
func NewProvider(cfg *config.ProviderConfig) *Provider {
	return newProvider(cfg, apiURL)
}

// NewProviderWithEndpoint creates a provider pointing at a custom API endpoint (for testing).
func NewProviderWithEndpoint(cfg *config.ProviderConfig, endpoint string) *Provider {
	return newProvider(cfg, endpoint)
}

func newProvider(cfg *config.ProviderConfig, endpoint string) *Provider {
	if cfg.Endpoint != "" {
		endpoint = cfg.Endpoint
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Provider{
		apiKey:   cfg.APIKey,
		folderID: cfg.FolderID,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (p *Provider) Name() string {
	return "yandex"
}

func (p *Provider) Extract(ctx context.Context, input port.ExtractInput) (*port.ExtractOutput, error) {
	reqBody := map[string]interface{}{
		"folderId": p.folderID,
		"analyze_specs": []map[string]interface{}{
			{
				"content": base64.StdEncoding.EncodeToString(input.Payload),
				"features": []map[string]interface{}{
					{
						"type": "TEXT_DETECTION",
						"text_detection_config": map[string]interface{}{
							"language_codes": []string{"*"},
						},
					},
				},
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Api-Key "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling yandex vision API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("yandex vision API error (status %d): %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := provider.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, provider.NewRateLimitError("yandex", baseErr, retryAfter)
		}
		return nil, baseErr
	}

	text, err := extractText(respBody)
	if err != nil {
		return nil, err
	}
	return &port.ExtractOutput{Text: text, Source: p.Name()}, nil
}

// extractText walks the batchAnalyze response tree and collects every "text"
// and "fullText" string in document order. The response nesting varies by
// feature version, so the walk is structural rather than schema-bound.
func extractText(body []byte) (string, error) {
	var root interface{}
	if err := json.Unmarshal(body, &root); err != nil {
		return "", fmt.Errorf("unmarshaling response: %w", err)
	}
	var parts []string
	collectText(root, &parts)
	return strings.Join(parts, "\n"), nil
}

func collectText(node interface{}, parts *[]string) {
	switch v := node.(type) {
	case map[string]interface{}:
		if s, ok := v["fullText"].(string); ok && s != "" {
			*parts = append(*parts, s)
			return
		}
		if s, ok := v["text"].(string); ok && s != "" {
			*parts = append(*parts, s)
		}
		for _, child := range v {
			collectText(child, parts)
		}
	case []interface{}:
		for _, child := range v {
			collectText(child, parts)
		}
	}
}
