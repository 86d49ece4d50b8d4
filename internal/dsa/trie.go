// Package dsa provides the data structures backing the workspace indexes.
// Uses go-radix for a compressed prefix tree over slash-separated paths.
package dsa

import (
	"sort"
	"strings"

	"github.com/armon/go-radix"
)

// Trie wraps go-radix for a compressed prefix tree (radix tree).
// Workspace paths share long prefixes ("src/app/", "src/lib/"), which the
// radix tree stores once per shared segment.
//
// Time Complexity: O(k) per lookup where k is key length.
type Trie[V any] struct {
	tree *radix.Tree
}

// NewTrie creates a new empty radix tree.
func NewTrie[V any]() *Trie[V] {
	return &Trie[V]{tree: radix.New()}
}

// Insert adds or replaces a key. Reports whether the key already existed.
func (t *Trie[V]) Insert(key string, value V) bool {
	_, updated := t.tree.Insert(key, value)
	return updated
}

// Get looks up a key.
func (t *Trie[V]) Get(key string) (V, bool) {
	val, found := t.tree.Get(key)
	if !found {
		var zero V
		return zero, false
	}
	v, ok := val.(V)
	return v, ok
}

// Delete removes a key. Reports whether it was present.
func (t *Trie[V]) Delete(key string) bool {
	_, deleted := t.tree.Delete(key)
	return deleted
}

// Len returns the number of keys in the tree.
func (t *Trie[V]) Len() int {
	return t.tree.Len()
}

// StartsWith returns all keys that start with prefix, in lexical order.
func (t *Trie[V]) StartsWith(prefix string) []string {
	var results []string
	t.tree.WalkPrefix(prefix, func(k string, _ interface{}) bool {
		results = append(results, k)
		return false
	})
	return results
}

// Children returns the immediate entries below dir. Nested directories are
// returned once, with a trailing slash. dir "" means the root.
func (t *Trie[V]) Children(dir string) []string {
	prefix := strings.TrimSuffix(dir, "/")
	if prefix != "" {
		prefix += "/"
	}
	seen := make(map[string]bool)
	var out []string
	t.tree.WalkPrefix(prefix, func(k string, _ interface{}) bool {
		rest := strings.TrimPrefix(k, prefix)
		if rest == "" {
			return false
		}
		name := rest
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			name = rest[:i+1]
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, prefix+name)
		}
		return false
	})
	sort.Strings(out)
	return out
}

// Clear removes all keys.
func (t *Trie[V]) Clear() {
	t.tree = radix.New()
}
