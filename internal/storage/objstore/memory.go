package objstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"dualfm/internal/fault"
)

// MemoryDomain is the error domain of MemoryClient.
const MemoryDomain = "Memory"

type memObject struct {
	data         []byte
	lastModified time.Time
}

// MemoryClient is an in-memory Client. It backs the "mem" pane and tests.
type MemoryClient struct {
	container string

	mu      sync.RWMutex
	objects map[string]*memObject
}

var _ Client = (*MemoryClient)(nil)

// NewMemoryClient creates an empty store named container.
func NewMemoryClient(container string) *MemoryClient {
	return &MemoryClient{
		container: container,
		objects:   make(map[string]*memObject),
	}
}

// Seed stores data under key directly.
func (m *MemoryClient) Seed(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = &memObject{data: append([]byte(nil), data...), lastModified: time.Now()}
}

// Data returns a copy of the object under key.
func (m *MemoryClient) Data(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), obj.data...), true
}

// Keys returns all keys in lexical order.
func (m *MemoryClient) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// List returns the keys under prefix in lexical order, as S3 does.
func (m *MemoryClient) List(_ context.Context, prefix string) ([]Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Object
	for k, obj := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, Object{Key: k, Size: int64(len(obj.data)), LastModified: obj.lastModified})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Get returns a reader over a copy of the object.
func (m *MemoryClient) Get(_ context.Context, key string) (io.ReadCloser, int64, error) {
	data, ok := m.Data(key)
	if !ok {
		return nil, 0, &fault.Error{
			Domain:  MemoryDomain,
			Code:    "NoSuchKey",
			Message: "The specified key does not exist.",
			Kind:    fault.NotFound,
		}
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

// Put reads r fully and stores it. A length differing from size is an
// incomplete transfer and nothing is stored.
func (m *MemoryClient) Put(_ context.Context, key string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fault.Wrap(MemoryDomain, fault.IncompleteTransfer, "", err)
	}
	if int64(len(data)) != size {
		return fault.New(MemoryDomain, fault.IncompleteTransfer,
			fmt.Sprintf("read %d of %d bytes", len(data), size))
	}
	m.mu.Lock()
	m.objects[key] = &memObject{data: data, lastModified: time.Now()}
	m.mu.Unlock()
	return nil
}

// Delete removes key. Deleting a missing key succeeds, matching S3.
func (m *MemoryClient) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// Container returns the store name.
func (m *MemoryClient) Container() string { return m.container }

// Provider is "mem".
func (m *MemoryClient) Provider() string { return "mem" }

// Domain is MemoryDomain.
func (m *MemoryClient) Domain() string { return MemoryDomain }
