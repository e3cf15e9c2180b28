// internal/catalog/catalog.go
//
// Color catalog management for the memory game.
//
// Responsibilities:
//   - Load the ordered color catalog from an operator-provided file or fall back
//     to the embedded default (assets/colors.yaml).
//   - Validate entries (hex color, non-empty name).
//   - Expose the loaded catalog for injection into game engines.
//
// Catalog file format (YAML; JSON lists parse too):
//   - color: "#6B9BD1"
//     name: Calm Blue
//     benefits: ...
//     description: ...
//     category: ...
//
// Initialization behavior (Init):
//   1. If path is set, load the catalog from that file.
//   2. Otherwise parse the embedded default.
//
// Constraints:
//   • Order is significant and never changes at runtime: an entry's identity is
//     its position.
//   • Initialization is run once (sync.Once).

package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/robalobadob/colormatch/assets"
)

// ColorEntry is one color record of the catalog.
type ColorEntry struct {
	Color       string `yaml:"color" json:"color"`
	Name        string `yaml:"name" json:"name"`
	Benefits    string `yaml:"benefits" json:"benefits"`
	Description string `yaml:"description" json:"description"`
	Category    string `yaml:"category" json:"category"`
}

// Catalog is an ordered list of color entries. Index = identity.
type Catalog []ColorEntry

var (
	initOnce   sync.Once
	loaded     Catalog
	initialErr error
)

// Init loads the process-wide catalog exactly once.
// An empty path selects the embedded default.
func Init(path string) error {
	initOnce.Do(func() {
		var (
			c   Catalog
			err error
		)
		if path != "" {
			c, err = Load(path)
		} else {
			c, err = Embedded()
		}
		if err != nil {
			initialErr = err
			return
		}
		loaded = c
	})
	return initialErr
}

// Default returns the catalog loaded by Init. Before Init (or after a failed Init)
// it falls back to the embedded catalog.
func Default() Catalog {
	if len(loaded) > 0 {
		return loaded
	}
	c, err := Embedded()
	if err != nil {
		return nil
	}
	return c
}

// Embedded parses the default catalog shipped in the binary.
func Embedded() (Catalog, error) {
	b, err := assets.ColorsYAML()
	if err != nil {
		return nil, fmt.Errorf("catalog: read embedded: %w", err)
	}
	return Parse(b)
}

// Load reads and parses a catalog file.
func Load(path string) (Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	c, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a YAML (or JSON) list of entries and validates it.
func Parse(b []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	if len(c) == 0 {
		return nil, errors.New("catalog: no entries")
	}
	for i := range c {
		c[i].Color = strings.ToUpper(strings.TrimSpace(c[i].Color))
		c[i].Name = strings.TrimSpace(c[i].Name)
		if !isHexColor(c[i].Color) {
			return nil, fmt.Errorf("catalog: entry %d: invalid color %q", i, c[i].Color)
		}
		if c[i].Name == "" {
			return nil, fmt.Errorf("catalog: entry %d: missing name", i)
		}
	}
	return c, nil
}

// Len reports the number of entries.
func (c Catalog) Len() int { return len(c) }

// At returns the entry at index i.
func (c Catalog) At(i int) (ColorEntry, bool) {
	if i < 0 || i >= len(c) {
		return ColorEntry{}, false
	}
	return c[i], true
}

// Leading returns the first n entries in catalog order, capped at the catalog size.
func (c Catalog) Leading(n int) Catalog {
	if n > len(c) {
		n = len(c)
	}
	if n < 0 {
		n = 0
	}
	return c[:n:n]
}

// isHexColor checks for the #RRGGBB form.
func isHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		if !(r >= '0' && r <= '9' || r >= 'A' && r <= 'F') {
			return false
		}
	}
	return true
}
