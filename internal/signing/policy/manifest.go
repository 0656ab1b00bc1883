package policy

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github/chapool/signing-gateway/internal/util"
)

// Manifest lists validator modules in evaluation order.
//
//	timeout = "2s"
//
//	[[validator]]
//	name = "gnosis"
//	path = "gnosis.lua"
type Manifest struct {
	Timeout    time.Duration   `toml:"timeout"`
	Validators []ManifestEntry `toml:"validator"`

	dir string
}

type ManifestEntry struct {
	Name     string `toml:"name"`
	Path     string `toml:"path"`
	Disabled *bool  `toml:"disabled"`
}

// LoadManifest reads a TOML manifest. Relative module paths resolve against the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	var manifest Manifest

	md, err := toml.DecodeFile(path, &manifest)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode policy manifest %s", path)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, errors.Errorf("unknown keys in policy manifest %s: %s", path, strings.Join(keys, ", "))
	}

	manifest.dir = filepath.Dir(path)

	return &manifest, nil
}

// Modules compiles the enabled modules of the manifest.
func (m *Manifest) Modules() ([]*Module, error) {
	modules := make([]*Module, 0, len(m.Validators))

	for i, entry := range m.Validators {
		if util.FalseIfNil(entry.Disabled) {
			continue
		}

		if entry.Path == "" {
			return nil, errors.Errorf("validator #%d in policy manifest has no path", i+1)
		}

		path := entry.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(m.dir, path)
		}

		module, err := LoadFile(entry.Name, path)
		if err != nil {
			return nil, err
		}

		modules = append(modules, module)
	}

	return modules, nil
}

// LoadModules compiles the validator scripts at paths, keeping their order.
func LoadModules(paths []string) ([]*Module, error) {
	modules := make([]*Module, 0, len(paths))

	for _, path := range paths {
		module, err := LoadFile("", path)
		if err != nil {
			return nil, err
		}

		modules = append(modules, module)
	}

	return modules, nil
}
