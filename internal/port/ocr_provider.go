package port

import "context"

// ExtractInput carries the data needed for one OCR extraction call.
type ExtractInput struct {
	Payload     []byte
	ContentType string
	MediaRef    string
}

// ExtractOutput contains the raw text recovered by a provider.
type ExtractOutput struct {
	Text   string
	Source string
}

// OCRProvider abstracts one text extraction backend.
type OCRProvider interface {
	Extract(ctx context.Context, input ExtractInput) (*ExtractOutput, error)
	Name() string
}
