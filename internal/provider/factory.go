package provider

import (
	"fmt"

	"kakdoma/internal/config"
	"kakdoma/internal/port"
)

// ProviderFactory is a function that creates an OCRProvider from a provider config.
type ProviderFactory func(cfg *config.ProviderConfig) (port.OCRProvider, error)

// registry of OCR provider factories, populated by init() in each provider
// package or explicitly via RegisterProvider.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers an OCR provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// New creates an OCRProvider from a provider config using the registered factory.
func New(cfg *config.ProviderConfig) (port.OCRProvider, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown ocr provider: %s", cfg.Provider)
	}
	return factory(cfg)
}
