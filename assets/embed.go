// assets/embed.go
//
// Embedded data files shipped inside the binary.
//   - colors.yaml: the default color catalog (ordered).

package assets

import (
	"embed"
)

//go:embed colors.yaml
var FS embed.FS

// ColorsYAML returns the raw bytes of the embedded default color catalog.
func ColorsYAML() ([]byte, error) {
	return FS.ReadFile("colors.yaml")
}
