// Package manifest handles dicescript.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the configuration file.
const FileName = "dicescript.toml"

// DefaultChartWidth is the bar width used when [chart] width is unset.
const DefaultChartWidth = 50

// Manifest represents a dicescript.toml configuration.
type Manifest struct {
	Run   Run   `toml:"run"`
	Chart Chart `toml:"chart"`
	Store Store `toml:"store"`
	Log   Log   `toml:"log"`

	// Dir is the directory containing the dicescript.toml file (set at load
	// time). Empty for the built-in defaults.
	Dir string `toml:"-"`
}

// Run configures script execution.
type Run struct {
	Seed      int64 `toml:"seed"`      // 0 draws a fresh seed per run
	Verbosity int   `toml:"verbosity"` // initial trace verbosity
}

// Chart configures the G instruction's output.
type Chart struct {
	Width int `toml:"width"`
}

// Store configures the program cache and run log.
type Store struct {
	Path string `toml:"path"` // empty disables the store
}

// Log configures diagnostic logging.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no dicescript.toml exists.
func Default() *Manifest {
	m := &Manifest{}
	m.fillDefaults()
	return m
}

func (m *Manifest) fillDefaults() {
	if m.Chart.Width <= 0 {
		m.Chart.Width = DefaultChartWidth
	}
}

// Load parses a dicescript.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse error in %s: unknown key %s", path, undecoded[0])
	}
	if m.Run.Verbosity < 0 || m.Log.Verbosity < 0 {
		return nil, fmt.Errorf("parse error in %s: verbosity cannot be negative", path)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	m.fillDefaults()

	return &m, nil
}

// FindAndLoad walks up from startDir to find a dicescript.toml file, then
// loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// StorePath returns the absolute path of the store database, or "" when the
// store is disabled. Relative paths are taken from the manifest directory.
func (m *Manifest) StorePath() string {
	return m.resolve(m.Store.Path)
}

// LogPath returns the absolute path of the log file, or "" for stderr.
func (m *Manifest) LogPath() string {
	return m.resolve(m.Log.File)
}

func (m *Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || m.Dir == "" {
		return p
	}
	return filepath.Join(m.Dir, p)
}
