package cache

import (
	"encoding/base64"
	"encoding/json"
	"sort"
	"strings"
)

// Key builds the canonical storage key for a namespace/key pair.
//
// The base form is "namespace:key". When params are supplied the parameter
// names are sorted, each rendered as name=JSON(value), joined with "&",
// base64-encoded and appended as a third segment. Sorting is what makes the
// key deterministic regardless of map iteration order: two lookups with the
// same parameters must always land on the same entry.
func Key(namespace, key string, params map[string]any) string {
	base := namespace + ":" + key
	if len(params) == 0 {
		return base
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		v, err := json.Marshal(params[name])
		if err != nil {
			// Unserializable values degrade to null rather than failing
			// the lookup.
			v = []byte("null")
		}
		pairs = append(pairs, name+"="+string(v))
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(strings.Join(pairs, "&")))
	return base + ":" + encoded
}
