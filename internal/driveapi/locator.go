package driveapi

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"pkt.systems/pslog"
)

// DefaultDocumentName is the well-known name the collection document
// carries in the per-user private area.
const DefaultDocumentName = "handy_dandy_tools_data.json"

// DocumentAPI is the subset of the client the locator needs.
type DocumentAPI interface {
	List(ctx context.Context, name string) ([]DocumentRef, error)
	CreateMetadata(ctx context.Context, name string) (string, error)
	PutContent(ctx context.Context, documentID string, data []byte) error
}

// Resolution reports how the well-known document was found. IgnoredCount
// is non-zero when duplicates share the name; the most recently modified
// one wins and the rest are left untouched.
type Resolution struct {
	DocumentID   string
	Created      bool
	IgnoredCount int
}

// Locator finds or lazily creates the single backing document and caches
// the identifier for the rest of the session. The identifier is never
// persisted across sessions because it is not guaranteed stable.
type Locator struct {
	mu     sync.Mutex
	api    DocumentAPI
	name   string
	cached string
	logger pslog.Logger
}

type LocatorOptions struct {
	API          DocumentAPI
	DocumentName string
	Logger       pslog.Logger
}

func NewLocator(opts LocatorOptions) *Locator {
	name := opts.DocumentName
	if name == "" {
		name = DefaultDocumentName
	}
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Locator{api: opts.API, name: name, logger: logger}
}

// Resolve returns the backing document, creating it when none exists.
// Duplicate documents are tolerated and logged, never deleted; the most
// recently modified match wins.
func (l *Locator) Resolve(ctx context.Context) (Resolution, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cached != "" {
		return Resolution{DocumentID: l.cached}, nil
	}

	refs, err := l.api.List(ctx, l.name)
	if err != nil {
		return Resolution{}, fmt.Errorf("list documents named %q: %w", l.name, err)
	}
	if len(refs) > 0 {
		sort.SliceStable(refs, func(i, j int) bool {
			return refs[i].ModifiedTime.After(refs[j].ModifiedTime)
		})
		if len(refs) > 1 {
			l.logger.Warn("multiple documents share the well-known name, using most recent",
				"name", l.name, "document", refs[0].ID, "ignored", len(refs)-1)
		}
		l.cached = refs[0].ID
		return Resolution{DocumentID: l.cached, IgnoredCount: len(refs) - 1}, nil
	}

	id, err := l.api.CreateMetadata(ctx, l.name)
	if err != nil {
		return Resolution{}, fmt.Errorf("create document %q: %w", l.name, err)
	}
	if err := l.api.PutContent(ctx, id, []byte(`{"worksheets": []}`)); err != nil {
		return Resolution{}, fmt.Errorf("write initial body of %q: %w", l.name, err)
	}
	l.logger.Info("created backing document", "name", l.name, "document", id)
	l.cached = id
	return Resolution{DocumentID: id, Created: true}, nil
}

// ResolveID is Resolve reduced to the identifier.
func (l *Locator) ResolveID(ctx context.Context) (string, error) {
	res, err := l.Resolve(ctx)
	if err != nil {
		return "", err
	}
	return res.DocumentID, nil
}

// Invalidate drops the cached identifier; called when the session ends so
// the next session re-resolves by name.
func (l *Locator) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cached = ""
}
