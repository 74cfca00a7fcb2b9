package tabstash

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultSlotKey is the well-known key under which the collection blob is
// stored, shared by every backend so data survives a DSN change.
const DefaultSlotKey = "handy_dandy_tools_data"

// SlotBackend stores a single opaque blob under a fixed key. Get reports
// absence instead of erroring; Set replaces the previous value wholesale.
type SlotBackend interface {
	Get(ctx context.Context) ([]byte, bool, error)
	Set(ctx context.Context, data []byte) error
}

type JSONFileSlotBackend struct {
	Path string
}

func NewJSONFileSlotBackend(path string) *JSONFileSlotBackend {
	return &JSONFileSlotBackend{Path: strings.TrimSpace(path)}
}

func (b *JSONFileSlotBackend) Get(ctx context.Context) ([]byte, bool, error) {
	if b == nil || strings.TrimSpace(b.Path) == "" {
		return nil, false, nil
	}
	data, err := os.ReadFile(b.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (b *JSONFileSlotBackend) Set(ctx context.Context, data []byte) error {
	if b == nil || strings.TrimSpace(b.Path) == "" {
		return errors.New("slot file path is empty")
	}
	dir := filepath.Dir(b.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := b.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, b.Path)
}

type InMemorySlotBackend struct {
	mu      sync.Mutex
	data    []byte
	present bool
}

func NewInMemorySlotBackend() *InMemorySlotBackend {
	return &InMemorySlotBackend{}
}

func (b *InMemorySlotBackend) Get(ctx context.Context) ([]byte, bool, error) {
	if b == nil {
		return nil, false, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.present {
		return nil, false, nil
	}
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out, true, nil
}

func (b *InMemorySlotBackend) Set(ctx context.Context, data []byte) error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = make([]byte, len(data))
	copy(b.data, data)
	b.present = true
	return nil
}
