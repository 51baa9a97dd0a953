package ocrspace

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"kakdoma/internal/config"
	"kakdoma/internal/port"
	"kakdoma/internal/provider"
)

const apiURL = "https://api.ocr.space/parse/image"

func init() {
	provider.RegisterProvider("ocrspace", func(cfg *config.ProviderConfig) (port.OCRProvider, error) {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("ocrspace: api key is required")
		}
		return NewProvider(cfg), nil
	})
}

// Provider implements port.OCRProvider using the OCR.space parse/image API.
type Provider struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewProvider creates an OCR.space provider from a provider config.
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
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (p *Provider) Name() string {
	return "ocrspace"
}

// apiResponse models the OCR.space parse response.
type apiResponse struct {
	ParsedResults []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool        `json:"IsErroredOnProcessing"`
	ErrorMessage          interface{} `json:"ErrorMessage"`
}

func (p *Provider) Extract(ctx context.Context, input port.ExtractInput) (*port.ExtractOutput, error) {
	contentType := input.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}

	form := url.Values{}
	form.Set("base64Image", "data:"+contentType+";base64,"+base64.StdEncoding.EncodeToString(input.Payload))
	form.Set("OCREngine", "2")
	form.Set("scale", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("apikey", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling ocr.space API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("ocr.space API error (status %d): %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := provider.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, provider.NewRateLimitError("ocrspace", baseErr, retryAfter)
		}
		return nil, baseErr
	}

	var parsed apiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}
	if parsed.IsErroredOnProcessing {
		return nil, fmt.Errorf("ocr.space processing error: %v", parsed.ErrorMessage)
	}

	var parts []string
	for _, r := range parsed.ParsedResults {
		if r.ParsedText != "" {
			parts = append(parts, r.ParsedText)
		}
	}
	return &port.ExtractOutput{Text: strings.Join(parts, "\n"), Source: p.Name()}, nil
}
