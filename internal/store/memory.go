package store

import (
	"context"
	"sync"

	"github.com/helixir/research-assistant/internal/domain"
)

// BackendMemory names the in-process backend.
const BackendMemory = "memory"

// MemoryOpener hands out views of one shared in-process store. Credentials are ignored.
type MemoryOpener struct {
	mu     sync.RWMutex
	papers []domain.Paper
	seen   map[string]struct{}
}

var _ Opener = (*MemoryOpener)(nil)

// NewMemoryOpener creates an empty in-memory store.
func NewMemoryOpener() *MemoryOpener {
	return &MemoryOpener{seen: make(map[string]struct{})}
}

// Backend returns "memory".
func (m *MemoryOpener) Backend() string {
	return BackendMemory
}

// Open returns a handle onto the shared store.
func (m *MemoryOpener) Open(ctx context.Context, _ Credentials) (PaperStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreError(BackendMemory, "open", "context done", err)
	}
	return &memoryStore{opener: m}, nil
}

// Len returns the number of stored papers.
func (m *MemoryOpener) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.papers)
}

type memoryStore struct {
	opener *MemoryOpener
	closed bool
}

func (s *memoryStore) Upsert(ctx context.Context, papers []domain.Paper) error {
	if s.closed {
		return domain.NewStoreError(BackendMemory, "upsert", "store is closed", nil)
	}
	if err := ctx.Err(); err != nil {
		return domain.NewStoreError(BackendMemory, "upsert", "context done", err)
	}
	if err := ValidateBatch(BackendMemory, papers); err != nil {
		return err
	}

	m := s.opener
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range papers {
		key := p.Fingerprint()
		if _, ok := m.seen[key]; ok {
			continue
		}
		m.seen[key] = struct{}{}
		m.papers = append(m.papers, p)
	}
	return nil
}

func (s *memoryStore) All(ctx context.Context) ([]domain.Paper, error) {
	if s.closed {
		return nil, domain.NewStoreError(BackendMemory, "all", "store is closed", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreError(BackendMemory, "all", "context done", err)
	}

	m := s.opener
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Paper, len(m.papers))
	copy(out, m.papers)
	return out, nil
}

func (s *memoryStore) Close(context.Context) error {
	s.closed = true
	return nil
}
