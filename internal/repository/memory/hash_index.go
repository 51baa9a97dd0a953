package memory

import (
	"context"
	"sync"

	"kakdoma/internal/port"
)

type hashIndex struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewHashIndex creates an in-memory DocumentHashIndex.
func NewHashIndex() port.DocumentHashIndex {
	return &hashIndex{seen: make(map[string]struct{})}
}

func (h *hashIndex) Seen(ctx context.Context, hash string) (bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.seen[hash]
	return ok, nil
}

func (h *hashIndex) Register(ctx context.Context, hash string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen[hash] = struct{}{}
	return nil
}
