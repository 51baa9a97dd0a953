package provider

import (
	"context"
	"fmt"
	"unicode/utf8"

	"kakdoma/internal/config"
	"kakdoma/internal/port"
)

func init() {
	RegisterProvider("text", func(cfg *config.ProviderConfig) (port.OCRProvider, error) {
		return NewTextProvider(), nil
	})
}

// TextProvider is the local extraction path. Upstream capture devices run
// their own OCR and submit the recovered text as the payload; this provider
// passes it through. Binary payloads are rejected so image submissions fall
// to the remote providers.
type TextProvider struct{}

func NewTextProvider() *TextProvider {
	return &TextProvider{}
}

func (p *TextProvider) Name() string {
	return "text"
}

func (p *TextProvider) Extract(ctx context.Context, input port.ExtractInput) (*port.ExtractOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !utf8.Valid(input.Payload) {
		return nil, fmt.Errorf("text provider: payload is not text")
	}
	return &port.ExtractOutput{
		Text:   string(input.Payload),
		Source: p.Name(),
	}, nil
}
