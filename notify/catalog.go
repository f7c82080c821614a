// Package notify turns realtime events into user-visible notices.
package notify

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/abase/abase-manager/realtime"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog maps event types to the notice shown for them.
type Catalog map[string]realtime.Notice

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("notify: built-in catalog: %v", err))
	}
	return c
}

// ParseCatalog reads a YAML catalog. Every entry needs a title and one of
// the known levels.
func ParseCatalog(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("[notify.ParseCatalog] %w", err)
	}
	for eventType, n := range c {
		if n.Title == "" {
			return nil, fmt.Errorf("[notify.ParseCatalog] %s: missing title", eventType)
		}
		switch n.Level {
		case realtime.LevelSuccess, realtime.LevelInfo, realtime.LevelWarning, realtime.LevelError:
		default:
			return nil, fmt.Errorf("[notify.ParseCatalog] %s: unknown level %q", eventType, n.Level)
		}
	}
	return c, nil
}

func (c Catalog) Lookup(eventType string) (realtime.Notice, bool) {
	n, ok := c[eventType]
	return n, ok
}
