package archive

import (
	"context"
	"sort"
	"strings"
	"sync"

	"dms-object-service/internal/core/domain"
	"dms-object-service/internal/core/ports/output"
)

// Memory keeps manifests in process memory. Contents are lost on restart.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

var _ ports.ManifestArchive = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) Put(ctx context.Context, key string, body []byte, contentType string) error {
	k, err := sanitizeKey(key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[k] = append([]byte(nil), body...)
	return nil
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	body, ok := m.objects[key]
	if !ok {
		return nil, domain.ManifestNotFound(key)
	}
	return append([]byte(nil), body...), nil
}

func (m *Memory) List(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
