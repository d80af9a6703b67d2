package solver

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/mzngo/mznerr"
)

// Registry resolves solver names and tags the way the driver's --solver flag
// does: full id first, then the last dotted component of the id, then tags.
type Registry struct {
	configs []*Config
}

// NewRegistry wraps already decoded configurations, in priority order.
func NewRegistry(configs ...*Config) *Registry {
	return &Registry{configs: append([]*Config(nil), configs...)}
}

// ParseSolversJSON decodes the output of `--solvers-json`. Every record is
// bound to the identifier the driver knows it by.
func ParseSolversJSON(data []byte) (*Registry, error) {
	var configs []*Config
	if err := json.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("decoding solver list: %w", err)
	}
	for _, c := range configs {
		id := c.ID
		if c.Version != "" && c.Version != unknownVersion {
			id += "@" + c.Version
		}
		c.bind(id)
	}
	return NewRegistry(configs...), nil
}

// All returns every configuration in priority order.
func (r *Registry) All() []*Config {
	return append([]*Config(nil), r.configs...)
}

// Lookup finds the configuration for tag. A "name@version" tag additionally
// requires the version to match.
func (r *Registry) Lookup(tag string) (*Config, error) {
	name, version, _ := strings.Cut(tag, "@")
	matchVersion := func(c *Config) bool { return version == "" || c.Version == version }

	rules := []func(*Config) bool{
		func(c *Config) bool { return c.ID == name },
		func(c *Config) bool { return lastComponent(c.ID) == name },
		func(c *Config) bool {
			for _, t := range c.Tags {
				if t == name {
					return true
				}
			}
			return false
		},
	}
	for _, rule := range rules {
		for _, c := range r.configs {
			if rule(c) && matchVersion(c) {
				return c, nil
			}
		}
	}
	return nil, mznerr.Configurationf("no solver id or tag %q found, available options: %s", tag, strings.Join(r.Tags(), ", "))
}

// Tags returns every name Lookup accepts, sorted.
func (r *Registry) Tags() []string {
	seen := map[string]struct{}{}
	for _, c := range r.configs {
		seen[c.ID] = struct{}{}
		seen[lastComponent(c.ID)] = struct{}{}
		for _, t := range c.Tags {
			seen[t] = struct{}{}
		}
	}
	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

func lastComponent(id string) string {
	if i := strings.LastIndexByte(id, '.'); i >= 0 {
		return id[i+1:]
	}
	return id
}
