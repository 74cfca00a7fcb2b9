package tabstash

import (
	"context"
	"fmt"
	"sync"

	"pkt.systems/pslog"
)

// Backend is one durable home for the collection: the local slot or the
// remote single-file document. The active backend is chosen once per
// session and injected here rather than re-checked at every call site.
type Backend interface {
	Kind() string
	Load(ctx context.Context) (Collection, error)
	Save(ctx context.Context, col Collection) error
}

// Facade is the single load/save surface the rest of the application uses.
// Save propagates failures so callers know the mutation did not commit;
// Load degrades every failure to an empty collection so there is always a
// renderable state.
type Facade struct {
	mu      sync.Mutex
	backend Backend
	logger  pslog.Logger
}

func NewFacade(backend Backend, logger pslog.Logger) *Facade {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Facade{backend: backend, logger: logger}
}

// Use swaps the active backend, typically on sign-in or sign-out.
func (f *Facade) Use(backend Backend) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.backend = backend
}

func (f *Facade) Backend() Backend {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.backend
}

func (f *Facade) Save(ctx context.Context, col Collection) error {
	backend := f.Backend()
	if backend == nil {
		return fmt.Errorf("%w: no backend configured", ErrStorageFailure)
	}
	if err := backend.Save(ctx, col); err != nil {
		return fmt.Errorf("save to %s backend: %w", backend.Kind(), err)
	}
	return nil
}

func (f *Facade) Load(ctx context.Context) Collection {
	backend := f.Backend()
	if backend == nil {
		return NewCollection()
	}
	col, err := backend.Load(ctx)
	if err != nil {
		f.logger.Warn("load failed, starting empty", "backend", backend.Kind(), "err", err)
		return NewCollection()
	}
	return col
}
