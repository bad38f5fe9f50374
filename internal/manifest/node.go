// Package manifest normalizes rendered Kubernetes manifests into generic,
// case-insensitive document trees that the translation pipeline can walk
// without depending on typed Kubernetes APIs.
package manifest

import (
	"strings"
)

// NodeKind discriminates the three shapes a manifest node can take.
type NodeKind int

const (
	// KindScalar is a leaf value, always held as a string.
	KindScalar NodeKind = iota
	// KindSequence is an ordered list of nodes.
	KindSequence
	// KindMapping is an ordered mapping with case-insensitive key lookup.
	KindMapping
)

// Node is a tagged union over scalar, sequence, and mapping values.
// Exactly one of the accessors is meaningful for a given Kind; the others
// return zero values.
type Node struct {
	kind   NodeKind
	scalar string
	seq    []Node
	keys   []string
	values map[string]Node
}

// Scalar creates a scalar node.
func Scalar(value string) Node {
	return Node{kind: KindScalar, scalar: value}
}

// Sequence creates a sequence node.
func Sequence(items ...Node) Node {
	return Node{kind: KindSequence, seq: items}
}

// NewMapping creates an empty mapping node.
func NewMapping() Node {
	return Node{kind: KindMapping, values: make(map[string]Node)}
}

// Kind returns the node's discriminator.
func (n Node) Kind() NodeKind { return n.kind }

// IsZero reports whether the node is the zero value (absent).
func (n Node) IsZero() bool {
	return n.kind == KindScalar && n.scalar == "" && n.seq == nil && n.values == nil
}

// String returns the scalar value, or "" for non-scalar nodes.
func (n Node) String() string {
	if n.kind == KindScalar {
		return n.scalar
	}

	return ""
}

// Items returns the sequence entries, or nil for non-sequence nodes.
func (n Node) Items() []Node {
	if n.kind == KindSequence {
		return n.seq
	}

	return nil
}

// Keys returns the mapping keys in document order, or nil for
// non-mapping nodes. Keys keep their original casing.
func (n Node) Keys() []string {
	if n.kind == KindMapping {
		return n.keys
	}

	return nil
}

// Set inserts or replaces a mapping entry. It is a no-op on non-mapping nodes.
func (n *Node) Set(key string, value Node) {
	if n.kind != KindMapping {
		return
	}

	lower := strings.ToLower(key)
	if _, exists := n.values[lower]; !exists {
		n.keys = append(n.keys, key)
	}

	n.values[lower] = value
}

// Get looks up a mapping entry by case-insensitive key. The second return
// value reports whether the key was present.
func (n Node) Get(key string) (Node, bool) {
	if n.kind != KindMapping {
		return Node{}, false
	}

	v, ok := n.values[strings.ToLower(key)]

	return v, ok
}

// Lookup walks a path of mapping keys and returns the node at the end.
// Any missing or non-mapping intermediate step yields (zero, false).
func (n Node) Lookup(path ...string) (Node, bool) {
	cur := n

	for _, key := range path {
		next, ok := cur.Get(key)
		if !ok {
			return Node{}, false
		}

		cur = next
	}

	return cur, true
}

// StringAt returns the scalar at the given mapping path, or "" when the path
// is missing or not a scalar.
func (n Node) StringAt(path ...string) string {
	v, ok := n.Lookup(path...)
	if !ok {
		return ""
	}

	return v.String()
}

// ItemsAt returns the sequence entries at the given mapping path, or nil.
func (n Node) ItemsAt(path ...string) []Node {
	v, ok := n.Lookup(path...)
	if !ok {
		return nil
	}

	return v.Items()
}

// Len returns the number of entries for sequences and mappings, and 0 for
// scalars.
func (n Node) Len() int {
	switch n.kind {
	case KindSequence:
		return len(n.seq)
	case KindMapping:
		return len(n.keys)
	default:
		return 0
	}
}
