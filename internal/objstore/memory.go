package objstore

import (
	"context"
	"os"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process Bucket. Keys are listed in lexical order.
type Memory struct {
	name string

	mu      sync.Mutex
	objects map[string][]byte
}

var _ Bucket = (*Memory)(nil)

// NewMemory returns an empty in-memory bucket called name.
func NewMemory(name string) *Memory {
	return &Memory{name: name, objects: map[string][]byte{}}
}

// Name implements Bucket.
func (m *Memory) Name() string { return m.name }

// Scheme implements Bucket.
func (m *Memory) Scheme() string { return "s3" }

// List implements Bucket.
func (m *Memory) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Exists implements Bucket.
func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

// Get implements Bucket.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrNotExist.New("%s", key)
	}
	return append([]byte(nil), data...), nil
}

// Save implements Bucket.
func (m *Memory) Save(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

// Delete implements Bucket.
func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// Download implements Bucket.
func (m *Memory) Download(ctx context.Context, key, localPath string) error {
	data, err := m.Get(ctx, key)
	if err != nil {
		return err
	}
	return Error.Wrap(os.WriteFile(localPath, data, 0o644))
}

// Upload implements Bucket.
func (m *Memory) Upload(ctx context.Context, key, localPath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return Error.Wrap(err)
	}
	return m.Save(ctx, key, data)
}
