package tree

import (
	"fmt"

	"github.com/jacentio/canopy/internal/keypath"
)

// Node is one vertex of a value tree. It holds a value, may delegate keyed
// slices of that value to child nodes, and keeps a history of the values it
// committed. Nodes are not safe for concurrent use.
type Node struct {
	key    any
	name   string
	parent *Node
	state  *treeState

	children map[any]*Node
	order    []any

	value       any
	form        Form
	initialized bool
	version     int64
	pending     bool
	dirty       bool
	stopped     bool
	history     History

	anyForm     bool
	pinType     bool
	validators  []Validator
	handlers    map[string][]*handlerRef
	subscribers []*subscriberRef
}

// Child describes a child node to attach under a key of its parent's value.
type Child struct {
	// Key is the record field, map key or list index the child owns.
	Key any

	// Node adopts an existing node. It is detached from its previous parent and
	// joins this tree.
	Node *Node

	// Value initialises a new child. When nil, the child takes the parent's
	// current value at Key.
	Value any

	// Config configures a new child. Logger, TracerName and DisableMetrics are
	// owned by the root and ignored here.
	Config Config
}

// New creates the root of a new tree holding value. The value's form is fixed
// from here on unless cfg.AnyForm is set. Children are attached in order.
func New(value any, cfg Config, children ...Child) (*Node, error) {
	cfg.validate()
	n := newNode(cfg)
	n.name = cfg.Name
	n.state = newTreeState(n, cfg)
	if err := n.setValue(ingest(value)); err != nil {
		return nil, err
	}
	for _, c := range children {
		if _, err := n.attach(c); err != nil {
			return nil, err
		}
	}
	n.initialized = true
	return n, nil
}

func newNode(cfg Config) *Node {
	return &Node{
		children:   make(map[any]*Node),
		anyForm:    cfg.AnyForm,
		pinType:    cfg.PinType,
		validators: append([]Validator(nil), cfg.Validators...),
	}
}

// AddChild attaches a child to an initialized node. Its value is folded into
// n's value as a versioned change. A child already attached at the key is
// completed once the change commits; if the change fails, the old child stays
// attached and an adopted node returns to where it came from.
func (n *Node) AddChild(c Child) (*Node, error) {
	if n.stopped {
		return nil, annotate(n, "add", ErrStopped)
	}
	return n.attach(c)
}

func (n *Node) attach(c Child) (*Node, error) {
	if !n.form.Compound() {
		return nil, annotate(n, "add", ErrNotCompound)
	}
	key, err := normalizeKey(c.Key, n.form)
	if err != nil {
		return nil, annotate(n, "add", err)
	}

	if !n.initialized {
		child, err := n.build(key, c)
		if err != nil {
			return nil, annotate(n, "add", err)
		}
		if old := n.children[key]; old != nil && old != child {
			if err := old.Complete(); err != nil {
				return nil, annotate(n, "add", err)
			}
		}
		n.graft(key, child)
		folded, err := setKey(n.value, key, child.value, n.form)
		if err != nil {
			n.unlink(key)
			return nil, annotate(n, "add", err)
		}
		n.value = folded
		if child.version > n.version {
			n.version = child.version
		}
		return child, nil
	}

	var child *Node
	err = n.run("add", func() error {
		var err error
		if child, err = n.build(key, c); err != nil {
			return err
		}
		if old := n.children[key]; old != child {
			n.detach(key)
		}
		n.state.remember(n)
		n.graft(key, child)
		if c.Node == nil {
			child.pending = true
			child.dirty = true
		}
		return child.foldIntoParent(newChange(child, child.value, child.value, TowardParent))
	})
	if err != nil {
		return nil, err
	}
	return child, nil
}

// build returns the node to attach at key: c.Node adopted, or a new node.
func (n *Node) build(key any, c Child) (*Node, error) {
	if c.Node != nil {
		return n.adopt(c.Node)
	}
	value := ingest(c.Value)
	if c.Value == nil {
		value, _ = getKey(n.value, key, n.form)
	}
	cfg := c.Config
	cfg.validate()
	child := newNode(cfg)
	child.state = n.state
	if err := child.setValue(value); err != nil {
		return nil, err
	}
	child.initialized = true
	return child, nil
}

// graft links child under n at key.
func (n *Node) graft(key any, child *Node) {
	child.parent = n
	child.key = key
	child.name = fmt.Sprint(key)
	n.link(key, child)
}

// adopt moves an existing node (and its subtree) into n's tree. Inside a
// transaction the move is journaled and undone on rollback.
func (n *Node) adopt(child *Node) (*Node, error) {
	if child.stopped {
		return nil, ErrStopped
	}
	for a := n; a != nil; a = a.parent {
		if a == child {
			return nil, fmt.Errorf("node %s is an ancestor: %w", child.displayPath(), ErrInvalidChild)
		}
	}
	if child.state != n.state && child.state.isOpen() {
		return nil, ErrTransactionOpen
	}

	if n.state.isOpen() {
		prevState, prevParent, prevKey, prevName := child.state, child.parent, child.key, child.name
		n.state.record(func() {
			child.parent, child.key, child.name = prevParent, prevKey, prevName
			child.setState(prevState)
		}, nil)
		if prevParent != nil {
			n.state.remember(prevParent)
		}
	}
	if p := child.parent; p != nil {
		p.unlink(child.key)
	}
	if h := child.state.highest; h > n.state.highest {
		n.state.highest = h
	}
	if v := child.maxVersion(); v > n.state.highest {
		n.state.highest = v
	}
	child.setState(n.state)
	return child, nil
}

// detach unlinks the child at key for the rest of the open transaction. The
// child is completed when the outermost transaction commits and linked again
// if the transaction rolls back.
func (n *Node) detach(key any) {
	c := n.children[key]
	if c == nil {
		return
	}
	n.state.remember(n)
	n.unlink(key)
	n.state.record(nil, c.completeDetached)
}

func (n *Node) setState(s *treeState) {
	n.state = s
	for _, c := range n.children {
		c.setState(s)
	}
}

func (n *Node) link(key any, child *Node) {
	if _, ok := n.children[key]; !ok {
		n.order = append(n.order, key)
	}
	n.children[key] = child
}

func (n *Node) unlink(key any) {
	if _, ok := n.children[key]; !ok {
		return
	}
	delete(n.children, key)
	for i, k := range n.order {
		if k == key {
			n.order = append(n.order[:i:i], n.order[i+1:]...)
			break
		}
	}
}

// childNodes returns the children in attachment order.
func (n *Node) childNodes() []*Node {
	out := make([]*Node, 0, len(n.order))
	for _, k := range n.order {
		out = append(out, n.children[k])
	}
	return out
}

// normalizeKey converts list indices to int and checks the key suits the form.
func normalizeKey(key any, f Form) (any, error) {
	switch f {
	case FormList:
		i, ok := listIndex(key)
		if !ok || i < 0 {
			return nil, fmt.Errorf("list index %v (%T) is invalid: %w", key, key, ErrInvalidChild)
		}
		return i, nil
	case FormRecord:
		if _, ok := key.(string); !ok {
			return nil, fmt.Errorf("record key %v (%T) is not a string: %w", key, key, ErrInvalidChild)
		}
	case FormMap:
		if !comparableKey(key) {
			return nil, fmt.Errorf("map key %v (%T) is not comparable: %w", key, key, ErrInvalidChild)
		}
	default:
		return nil, ErrNotCompound
	}
	return key, nil
}

// Value returns a copy of the node's current value.
func (n *Node) Value() any {
	return deepCopy(n.value)
}

// Form returns the node's structural form.
func (n *Node) Form() Form {
	return n.form
}

// Version returns the version of the node's last committed value.
func (n *Node) Version() int64 {
	return n.version
}

// HighestVersion returns the highest version committed anywhere in the tree.
func (n *Node) HighestVersion() int64 {
	return n.state.highest
}

// InFlight reports whether an open transaction has touched the node.
func (n *Node) InFlight() bool {
	return n.pending
}

// IsStopped reports whether Complete has been called.
func (n *Node) IsStopped() bool {
	return n.stopped
}

// Parent returns the node n is attached to, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// IsRoot reports whether n has no parent.
func (n *Node) IsRoot() bool { return n.parent == nil }

// Root walks up to the top of the tree.
func (n *Node) Root() *Node {
	r := n
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// Key returns the key n occupies in its parent, or nil for a root.
func (n *Node) Key() any {
	return n.key
}

// Name is the root's configured name or a child's key.
func (n *Node) Name() string {
	return n.name
}

// Path returns the dotted path from the root to n. The root's path is "".
func (n *Node) Path() string {
	var keys []any
	for c := n; c.parent != nil; c = c.parent {
		keys = append(keys, c.key)
	}
	for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
		keys[i], keys[j] = keys[j], keys[i]
	}
	return keypath.Format(keys...)
}

func (n *Node) displayPath() string {
	if p := n.Path(); p != "" {
		return p
	}
	return n.Root().name
}

// Children returns the keys of the node's children in attachment order.
func (n *Node) Children() []any {
	return append([]any(nil), n.order...)
}

// History returns a copy of the node's snapshot log.
func (n *Node) History() []Snapshot {
	return n.history.Entries()
}

// ValueAt returns the value the node held at version.
func (n *Node) ValueAt(version int64) (any, bool) {
	if !n.pending && version >= n.version {
		return n.Value(), true
	}
	snap, ok := n.lookup(version)
	if !ok {
		return nil, false
	}
	return deepCopy(snap.Value), true
}
