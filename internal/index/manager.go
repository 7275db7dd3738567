package index

import (
	"log/slog"
	"sync/atomic"

	"github.com/starford/ansuz/internal/storage"
)

// Manager owns the current Index and supports wholesale rebuild swaps.
// Readers always see a complete, immutable snapshot; a rebuild replaces the
// pointer atomically once the new index is fully constructed.
type Manager struct {
	current atomic.Pointer[Index]
	store   storage.Provider
	cfg     Config
	logger  *slog.Logger
}

// NewManager builds the initial index and returns a manager holding it.
func NewManager(store storage.Provider, cfg Config, logger *slog.Logger) (*Manager, error) {
	ix, err := Build(store, cfg)
	if err != nil {
		return nil, err
	}
	m := &Manager{store: store, cfg: cfg, logger: logger}
	m.current.Store(ix)
	return m, nil
}

// Current returns the live index snapshot.
func (m *Manager) Current() *Index {
	return m.current.Load()
}

// Rebuild constructs a fresh index from disk. When the document-set
// fingerprint is unchanged the swap is skipped and changed is false.
func (m *Manager) Rebuild() (changed bool, err error) {
	fresh, err := Build(m.store, m.cfg)
	if err != nil {
		return false, err
	}
	if fresh.Fingerprint == m.Current().Fingerprint {
		m.logger.Debug("index: rebuild skipped, fingerprint unchanged")
		return false, nil
	}
	m.current.Store(fresh)
	m.logger.Info("index: rebuilt",
		slog.Int("files", len(fresh.Files)),
		slog.Int("sections", len(fresh.Search)),
		slog.Int("specs", len(fresh.Specs.Specs)))
	return true, nil
}
