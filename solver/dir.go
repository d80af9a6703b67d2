package solver

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// ConfigExt is the file suffix of solver configuration files.
const ConfigExt = ".msc"

// FindConfigs recursively searches root for solver configuration files and
// returns their paths, sorted.
func FindConfigs(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ConfigExt) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("searching solver configurations in %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// LoadDirs loads every solver configuration found under dirs. Earlier
// directories take priority in lookups.
func LoadDirs(dirs ...string) (*Registry, error) {
	var configs []*Config
	for _, dir := range dirs {
		files, err := FindConfigs(dir)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			c, err := Load(f)
			if err != nil {
				return nil, err
			}
			configs = append(configs, c)
		}
	}
	return NewRegistry(configs...), nil
}

// Merge returns a registry holding r's configurations followed by other's.
func (r *Registry) Merge(other *Registry) *Registry {
	merged := r.All()
	if other != nil {
		merged = append(merged, other.configs...)
	}
	return NewRegistry(merged...)
}
