package tabstash

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"pkt.systems/pslog"
)

// Manager owns the in-memory collection and applies every mutation there
// first, then saves the whole collection through the facade. A failed save
// keeps the mutation in memory and returns the error so the user can retry
// the same save instead of re-entering data.
type Manager struct {
	mu       sync.Mutex
	col      Collection
	selected string
	facade   *Facade
	now      func() time.Time
	logger   pslog.Logger
}

type ManagerOptions struct {
	Facade *Facade
	Now    func() time.Time
	Logger pslog.Logger
}

func NewManager(opts ManagerOptions) *Manager {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Manager{
		col:    NewCollection(),
		facade: opts.Facade,
		now:    now,
		logger: logger,
	}
}

// Load replaces the in-memory collection from the active backend and
// auto-selects the first worksheet when none is selected.
func (m *Manager) Load(ctx context.Context) {
	col := m.facade.Load(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.col = col
	if m.col.IndexOf(m.selected) < 0 {
		m.selected = ""
	}
	if m.selected == "" && len(m.col.Worksheets) > 0 {
		m.selected = m.col.Worksheets[0].ID
	}
}

func (m *Manager) Collection() Collection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.col.Clone()
}

func (m *Manager) Selected() (Worksheet, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.col.IndexOf(m.selected)
	if idx < 0 {
		return Worksheet{}, false
	}
	ws := m.col.Worksheets[idx]
	ws.Tabs = append([]Tab(nil), ws.Tabs...)
	return ws, true
}

func (m *Manager) Select(worksheetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.col.IndexOf(worksheetID) < 0 {
		return fmt.Errorf("%w: %s", ErrWorksheetNotFound, worksheetID)
	}
	m.selected = worksheetID
	return nil
}

func (m *Manager) CreateWorksheet(ctx context.Context, name string) (Worksheet, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Worksheet{}, fmt.Errorf("%w: worksheet name is empty", ErrInvalidInput)
	}
	m.mu.Lock()
	ws := Worksheet{
		ID:      m.nextWorksheetID(),
		Name:    name,
		Created: m.now().UTC().Format(time.RFC3339),
		Tabs:    []Tab{},
	}
	m.col.Worksheets = append(m.col.Worksheets, ws)
	m.selected = ws.ID
	m.mu.Unlock()
	return ws, m.save(ctx)
}

func (m *Manager) RenameWorksheet(ctx context.Context, worksheetID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: worksheet name is empty", ErrInvalidInput)
	}
	m.mu.Lock()
	idx := m.col.IndexOf(worksheetID)
	if idx < 0 {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrWorksheetNotFound, worksheetID)
	}
	m.col.Worksheets[idx].Name = name
	m.mu.Unlock()
	return m.save(ctx)
}

// DeleteWorksheet removes the worksheet and, with it, every tab it owns.
func (m *Manager) DeleteWorksheet(ctx context.Context, worksheetID string) error {
	m.mu.Lock()
	idx := m.col.IndexOf(worksheetID)
	if idx < 0 {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrWorksheetNotFound, worksheetID)
	}
	m.col.Worksheets = append(m.col.Worksheets[:idx], m.col.Worksheets[idx+1:]...)
	if m.selected == worksheetID {
		m.selected = ""
	}
	m.mu.Unlock()
	return m.save(ctx)
}

func (m *Manager) AddTab(ctx context.Context, worksheetID, rawURL, name string) (Tab, error) {
	tab, err := NewTab(rawURL, name, m.now())
	if err != nil {
		return Tab{}, err
	}
	m.mu.Lock()
	idx := m.col.IndexOf(worksheetID)
	if idx < 0 {
		m.mu.Unlock()
		return Tab{}, fmt.Errorf("%w: %s", ErrWorksheetNotFound, worksheetID)
	}
	m.col.Worksheets[idx].Tabs = append(m.col.Worksheets[idx].Tabs, tab)
	m.mu.Unlock()
	return tab, m.save(ctx)
}

func (m *Manager) DeleteTab(ctx context.Context, worksheetID string, tabIndex int) error {
	m.mu.Lock()
	idx := m.col.IndexOf(worksheetID)
	if idx < 0 {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrWorksheetNotFound, worksheetID)
	}
	tabs := m.col.Worksheets[idx].Tabs
	if tabIndex < 0 || tabIndex >= len(tabs) {
		m.mu.Unlock()
		return fmt.Errorf("%w: index %d", ErrTabNotFound, tabIndex)
	}
	m.col.Worksheets[idx].Tabs = append(tabs[:tabIndex], tabs[tabIndex+1:]...)
	m.mu.Unlock()
	return m.save(ctx)
}

// Replace swaps in an imported collection wholesale and persists it.
func (m *Manager) Replace(ctx context.Context, col Collection) error {
	m.mu.Lock()
	m.col = col.Clone()
	if m.col.Worksheets == nil {
		m.col.Worksheets = []Worksheet{}
	}
	m.selected = ""
	if len(m.col.Worksheets) > 0 {
		m.selected = m.col.Worksheets[0].ID
	}
	m.mu.Unlock()
	return m.save(ctx)
}

// Save re-persists the current collection; the manual retry surface for a
// previously failed save.
func (m *Manager) Save(ctx context.Context) error {
	return m.save(ctx)
}

func (m *Manager) Export() ([]byte, error) {
	return EncodeCollectionIndent(m.Collection())
}

func (m *Manager) save(ctx context.Context) error {
	return m.facade.Save(ctx, m.Collection())
}

// nextWorksheetID derives IDs from the creation time in milliseconds, the
// way the stored data has always named them; same-millisecond creations
// bump until unique. Caller holds m.mu.
func (m *Manager) nextWorksheetID() string {
	ms := m.now().UnixMilli()
	for {
		id := strconv.FormatInt(ms, 10)
		if m.col.IndexOf(id) < 0 {
			return id
		}
		ms++
	}
}
