package config

import (
	"slices"
	"strings"
)

// Resolve returns the module IDs from the configuration in load order:
// alphabetical, except gateway modules go last so that every capability
// module has registered its services before a transport surfaces them.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Modules))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		ga, gb := strings.HasPrefix(a, "gateway."), strings.HasPrefix(b, "gateway.")
		if ga != gb {
			if ga {
				return 1
			}
			return -1
		}
		return strings.Compare(a, b)
	})
	return ids
}
