package backend

import "github.com/lib/pq"

// pqStringArray adapts a Go string slice to the text[] placeholder expected
// by descendantsMissingQuery's unnest($2::text[]).
func pqStringArray(keys []string) interface{} {
	return pq.Array(keys)
}
