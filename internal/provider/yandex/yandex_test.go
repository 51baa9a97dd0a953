package yandex

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kakdoma/internal/config"
	"kakdoma/internal/port"
	"kakdoma/internal/provider"
)

func testConfig() *config.ProviderConfig {
	return &config.ProviderConfig{
		Provider: "yandex",
		APIKey:   "test-key",
		FolderID: "folder-1",
		Timeout:  2 * time.Second,
	}
}

func TestExtractCollectsFullText(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []interface{}{
				map[string]interface{}{
					"results": []interface{}{
						map[string]interface{}{
							"textDetection": map[string]interface{}{
								"pages": []interface{}{
									map[string]interface{}{"fullText": "P<UTOERIKSSON<<ANNA<"},
								},
							},
						},
					},
				},
			},
		})
	}))
	defer srv.Close()

	p := NewProviderWithEndpoint(testConfig(), srv.URL)
	out, err := p.Extract(context.Background(), port.ExtractInput{Payload: []byte("img")})
	require.NoError(t, err)
	assert.Equal(t, "P<UTOERIKSSON<<ANNA<", out.Text)
	assert.Equal(t, "yandex", out.Source)
	assert.Equal(t, "Api-Key test-key", gotAuth)
}

func TestExtractRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewProviderWithEndpoint(testConfig(), srv.URL)
	_, err := p.Extract(context.Background(), port.ExtractInput{Payload: []byte("img")})
	require.Error(t, err)

	var rle *provider.RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, "yandex", rle.Provider)
	assert.Equal(t, 30*time.Second, rle.RetryAfter)
}

func TestExtractServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewProviderWithEndpoint(testConfig(), srv.URL)
	_, err := p.Extract(context.Background(), port.ExtractInput{Payload: []byte("img")})
	assert.Error(t, err)
}

func TestFactoryRequiresAPIKey(t *testing.T) {
	_, err := provider.New(&config.ProviderConfig{Provider: "yandex"})
	assert.Error(t, err)
}
