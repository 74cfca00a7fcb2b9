package tabstash

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Tab is a saved link inside a worksheet. Created is an RFC 3339 timestamp
// kept as a string so payloads round-trip byte-for-byte.
type Tab struct {
	URL     string `json:"url"`
	Name    string `json:"name"`
	Created string `json:"created"`
}

// Worksheet is a named, ordered list of tabs.
type Worksheet struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Created string `json:"created"`
	Tabs    []Tab  `json:"tabs"`
}

// Collection is the full persisted set of worksheets, the unit of every
// save and load.
type Collection struct {
	Worksheets []Worksheet `json:"worksheets"`
}

func NewCollection() Collection {
	return Collection{Worksheets: []Worksheet{}}
}

// Clone returns a deep copy so callers can hand out snapshots without
// exposing internal slices to mutation.
func (c Collection) Clone() Collection {
	out := Collection{Worksheets: make([]Worksheet, len(c.Worksheets))}
	for i, ws := range c.Worksheets {
		cloned := ws
		cloned.Tabs = make([]Tab, len(ws.Tabs))
		copy(cloned.Tabs, ws.Tabs)
		out.Worksheets[i] = cloned
	}
	return out
}

func (c Collection) IndexOf(worksheetID string) int {
	for i, ws := range c.Worksheets {
		if ws.ID == worksheetID {
			return i
		}
	}
	return -1
}

// DisplayName returns the tab name, falling back to the URL host with the
// scheme stripped and any path dropped.
func (t Tab) DisplayName() string {
	if strings.TrimSpace(t.Name) != "" {
		return t.Name
	}
	trimmed := strings.TrimPrefix(strings.TrimPrefix(t.URL, "https://"), "http://")
	if idx := strings.IndexByte(trimmed, '/'); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return trimmed
}

func EncodeCollection(c Collection) ([]byte, error) {
	if c.Worksheets == nil {
		c.Worksheets = []Worksheet{}
	}
	return json.Marshal(c)
}

// EncodeCollectionIndent renders the export payload with two-space
// indentation, matching the manual export format.
func EncodeCollectionIndent(c Collection) ([]byte, error) {
	if c.Worksheets == nil {
		c.Worksheets = []Worksheet{}
	}
	return json.MarshalIndent(c, "", "  ")
}

func DecodeCollection(data []byte) (Collection, error) {
	var c Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return Collection{}, err
	}
	if c.Worksheets == nil {
		c.Worksheets = []Worksheet{}
	}
	for i := range c.Worksheets {
		if c.Worksheets[i].Tabs == nil {
			c.Worksheets[i].Tabs = []Tab{}
		}
	}
	return c, nil
}

// NormalizeTabURL prefixes https:// when the input carries no scheme and
// validates that the result parses as an absolute URL with a host.
func NormalizeTabURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty url", ErrInvalidInput)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("%w: url %q has no host", ErrInvalidInput, raw)
	}
	return raw, nil
}

// NewTab builds a tab from user input, deriving the display name from the
// URL host when none is given.
func NewTab(rawURL, name string, now time.Time) (Tab, error) {
	normalized, err := NormalizeTabURL(rawURL)
	if err != nil {
		return Tab{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		parsed, parseErr := url.Parse(normalized)
		if parseErr == nil {
			name = parsed.Host
		}
	}
	return Tab{
		URL:     normalized,
		Name:    name,
		Created: now.UTC().Format(time.RFC3339),
	}, nil
}
