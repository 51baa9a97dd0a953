package httpmedia

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"kakdoma/internal/config"
	"kakdoma/internal/domain"
	"kakdoma/internal/port"
)

type httpStorage struct {
	client   *http.Client
	maxBytes int64
}

// NewStorage creates a MediaStorage fetching http(s):// refs.
func NewStorage(cfg *config.StorageConfig) port.MediaStorage {
	timeout := cfg.FetchTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	maxBytes := cfg.MaxObjectSizeMB * 1024 * 1024
	if maxBytes <= 0 {
		maxBytes = 25 * 1024 * 1024
	}
	return &httpStorage{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

func (c *httpStorage) Fetch(ctx context.Context, ref string) ([]byte, string, error) {
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		return nil, "", fmt.Errorf("not an http ref: %s", ref)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetching %s: %w", ref, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, "", fmt.Errorf("%s: %w", ref, domain.ErrMediaNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetching %s: status %d", ref, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", ref, err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, "", fmt.Errorf("media %s exceeds %d bytes", ref, c.maxBytes)
	}

	sum := sha256.Sum256(data)
	return data, hex.EncodeToString(sum[:]), nil
}
