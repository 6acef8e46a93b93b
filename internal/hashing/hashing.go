// Package hashing computes the deterministic content hash that keys every
// memory: a 64-hex SHA-256 over canonicalized content and sorted tags.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// separator joins canonicalized content and the sorted tag list. It is a
// non-textual byte (ASCII unit separator) so it cannot collide with
// anything a caller's content or tags could legitimately contain.
const separator = "\x1f"

// Hash returns the 64-hex content hash for content and tags. It is
// bit-exact regardless of tag ordering: Hash("x", []string{"a","b"}) ==
// Hash("x", []string{"b","a"}).
func Hash(content string, tags []string) string {
	normalized := normalize(content)
	sorted := sortedTags(tags)
	sum := sha256.Sum256([]byte(normalized + separator + strings.Join(sorted, ",")))
	return hex.EncodeToString(sum[:])
}

// normalize trims trailing whitespace and normalizes line endings to "\n".
func normalize(content string) string {
	s := strings.ReplaceAll(content, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimRight(s, " \t\n")
}

// sortedTags returns a new, lexicographically sorted copy of tags; the
// input slice is never mutated.
func sortedTags(tags []string) []string {
	sorted := make([]string, len(tags))
	copy(sorted, tags)
	sort.Strings(sorted)
	return sorted
}
