package tree

import (
	"fmt"
	"strconv"

	"github.com/jacentio/canopy/internal/keypath"
)

// Get returns a copy of the value stored at key.
func (n *Node) Get(key any) (any, bool) {
	k, err := normalizeKey(key, n.form)
	if err != nil {
		return nil, false
	}
	v, ok := getKey(n.value, k, n.form)
	if !ok {
		return nil, false
	}
	return deepCopy(v), true
}

// Keys returns the keys of the node's value: sorted record fields, map keys
// sorted by their printed form, or list indices.
func (n *Node) Keys() []any {
	return keysOf(n.value, n.form)
}

// Set replaces the value at key and routes the result through Next, so
// validators, children and ancestors all see it. Lists grow to fit the index.
func (n *Node) Set(key any, value any) error {
	if n.stopped {
		return annotate(n, "set", ErrStopped)
	}
	k, err := normalizeKey(key, n.form)
	if err != nil {
		return annotate(n, "set", err)
	}
	updated, err := setKey(n.value, k, ingest(value), n.form)
	if err != nil {
		return annotate(n, "set", err)
	}
	return n.next(updated, Absolute, "set")
}

// DelKeys removes keys from the node's value and detaches the children at
// those keys. List entries become nil so other indices do not shift. The
// detached children are completed once the change commits; if it fails they
// stay attached.
func (n *Node) DelKeys(keys ...any) error {
	if n.stopped {
		return annotate(n, "delete", ErrStopped)
	}
	if !n.form.Compound() {
		return annotate(n, "delete", ErrNotCompound)
	}

	normalized := make([]any, 0, len(keys))
	for _, key := range keys {
		k, err := normalizeKey(key, n.form)
		if err != nil {
			return annotate(n, "delete", err)
		}
		normalized = append(normalized, k)
	}
	return n.run("delete", func() error {
		for _, k := range normalized {
			n.detach(k)
		}
		return n.next(delKeys(n.value, normalized, n.form), Absolute, "delete")
	})
}

// Child returns the child node at key, or nil.
func (n *Node) Child(key any) *Node {
	k, err := normalizeKey(key, n.form)
	if err != nil {
		return nil
	}
	return n.children[k]
}

// Find resolves a dotted path such as "rows.0.name" to a descendant node.
// Segments that look like integers address list indices and int map keys;
// a literal dot inside a key is written as `\.`.
func (n *Node) Find(path string) (*Node, error) {
	segments, err := keypath.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPathNotFound, err)
	}
	cur := n
	for _, seg := range segments {
		next := cur.childBySegment(seg)
		if next == nil {
			return nil, &PathError{Path: path, Segment: seg}
		}
		cur = next
	}
	return cur, nil
}

// FindKeys resolves a sequence of typed keys to a descendant node.
func (n *Node) FindKeys(keys ...any) (*Node, error) {
	cur := n
	for i, key := range keys {
		next := cur.Child(key)
		if next == nil {
			return nil, &PathError{
				Path:    keypath.Format(keys...),
				Segment: keypath.Format(keys[i]),
			}
		}
		cur = next
	}
	return cur, nil
}

func (n *Node) childBySegment(seg string) *Node {
	switch n.form {
	case FormRecord:
		return n.children[seg]
	case FormList:
		i, err := strconv.Atoi(seg)
		if err != nil {
			return nil
		}
		return n.children[i]
	case FormMap:
		if c := n.children[seg]; c != nil {
			return c
		}
		if i, err := strconv.Atoi(seg); err == nil {
			if c := n.children[i]; c != nil {
				return c
			}
		}
		for _, k := range n.order {
			if fmt.Sprint(k) == seg {
				return n.children[k]
			}
		}
	}
	return nil
}
