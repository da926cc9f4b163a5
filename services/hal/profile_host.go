//go:build !(rp2040 || rp2350)

package hal

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// LoadProfile overlays the TOML file at path on the default profile.
// A missing file is not an error.
func LoadProfile(path string) (Profile, error) {
	p := DefaultProfile()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return p, nil
	}
	if err != nil {
		return p, err
	}
	if err := toml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse profile %s: %w", path, err)
	}
	return p.Normalize(), nil
}
