// Package profile persists named ingestion parameter sets.
//
// Field crews shoot labels under very different conditions (backlit trays,
// engraved copper tags, laser-printed fiber labels), and each condition wants
// its own preprocessing knobs. A profile bundles one working combination under
// a name so it can be recalled with a single flag. Profiles live in a TOML
// file under the user's configuration directory.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	toml "github.com/pelletier/go-toml/v2"

	"splice-scan/internal/raster"
	"splice-scan/internal/recognize"
)

// DefaultName is the profile used when none is requested.
const DefaultName = "default"

// Profile is one named set of ingestion parameters.
type Profile struct {
	// Preprocessing parameters applied before recognition.
	Preprocess raster.Config `toml:"preprocess"`

	// Minimum per-line confidence (0-1) kept from the engine output.
	MinConfidence float64 `toml:"min_confidence"`

	// Recognition language passed to the engine.
	Language string `toml:"language"`
}

// Default returns the builtin profile used when no file entry overrides it.
func Default() Profile {
	return Profile{
		Preprocess:    raster.DefaultConfig(),
		MinConfidence: recognize.DefaultMinConfidence,
		Language:      "eng",
	}
}

// Set is a collection of named profiles as stored on disk.
type Set struct {
	Profiles map[string]Profile `toml:"profiles"`
}

// Get returns the named profile. The default profile is always available,
// but a file entry with the same name overrides the builtin values.
func (s *Set) Get(name string) (Profile, error) {
	if p, ok := s.Profiles[name]; ok {
		if err := p.Preprocess.Validate(); err != nil {
			return Profile{}, fmt.Errorf("profile %q: %w", name, err)
		}
		return p, nil
	}
	if name == DefaultName {
		return Default(), nil
	}
	return Profile{}, fmt.Errorf("unknown profile %q", name)
}

// Put adds or replaces a named profile.
func (s *Set) Put(name string, p Profile) {
	if s.Profiles == nil {
		s.Profiles = make(map[string]Profile)
	}
	s.Profiles[name] = p
}

// Names returns the stored profile names in sorted order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.Profiles))
	for name := range s.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load reads a profile set from a TOML file. A missing file is not an
// error; it yields an empty set so first runs work without any setup.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Set{Profiles: make(map[string]Profile)}, nil
		}
		return nil, fmt.Errorf("failed to read profiles: %w", err)
	}

	var set Set
	if err := toml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse profiles: %w", err)
	}
	if set.Profiles == nil {
		set.Profiles = make(map[string]Profile)
	}
	return &set, nil
}

// Save writes the profile set to a TOML file.
func Save(set *Set, path string) error {
	data, err := toml.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to encode profiles: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write profiles: %w", err)
	}
	return nil
}

// UserPath returns the per-user profile file location, creating the
// application configuration directory if needed.
func UserPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	appDir := filepath.Join(configDir, "splice-scan")
	if err := os.MkdirAll(appDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return filepath.Join(appDir, "profiles.toml"), nil
}

// LoadUser reads the per-user profile set.
func LoadUser() (*Set, error) {
	path, err := UserPath()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// SaveUser writes the per-user profile set.
func SaveUser(set *Set) error {
	path, err := UserPath()
	if err != nil {
		return err
	}
	return Save(set, path)
}
