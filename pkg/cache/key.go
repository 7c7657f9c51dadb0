package cache

import (
	"maps"
	"slices"
	"strings"
)

// KeyPrefix namespaces every cache key.
const KeyPrefix = "artic"

// CacheKey identifies one cached API response within a browsing session.
type CacheKey struct {
	Session     string
	Endpoint    string // API path, e.g. "/artworks"
	QueryParams map[string][]string
}

// String renders the key as artic:<session>:<endpoint>:<k=v>... with the
// query parameters in name order, e.g.
//
//	artic:3f2a...:artworks:fields=id,title:page=2
//
// Repeated values of one parameter are joined with commas.
func (k CacheKey) String() string {
	var b strings.Builder
	b.WriteString(KeyPrefix)

	write := func(part string) {
		if part == "" {
			return
		}
		b.WriteByte(':')
		b.WriteString(part)
	}

	write(k.Session)
	write(strings.Trim(k.Endpoint, "/"))
	for _, name := range slices.Sorted(maps.Keys(k.QueryParams)) {
		write(name + "=" + strings.Join(k.QueryParams[name], ","))
	}
	return b.String()
}

// SessionPattern returns the SCAN pattern matching every key of a session.
func SessionPattern(session string) string {
	return KeyPrefix + ":" + session + ":*"
}
