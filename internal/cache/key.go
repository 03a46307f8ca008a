package cache

import "strings"

// SpeciesKey is the cache key for a species lookup: species:<nameOrId>.
// The key is trimmed and lower-cased the same way the client builds upstream paths.
func SpeciesKey(nameOrID string) string {
	return "species:" + strings.ToLower(strings.TrimSpace(nameOrID))
}
