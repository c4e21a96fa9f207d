package tree

import "fmt"

// advance stamps every dirty node in n's subtree with target, snapshots it and
// clears the in-flight flag everywhere. Stamped nodes are returned children
// first. Nodes that were in flight but unchanged keep their version.
func (n *Node) advance(target int64) []*Node {
	var stamped []*Node
	for _, c := range n.childNodes() {
		stamped = append(stamped, c.advance(target)...)
	}
	if n.dirty {
		n.version = target
		n.history.Snapshot(target, n.value)
		n.dirty = false
		stamped = append(stamped, n)
	}
	n.pending = false
	return stamped
}

// lookup returns the node's value as of version v.
func (n *Node) lookup(v int64) (Snapshot, bool) {
	if snap, ok := n.history.Lookup(v); ok {
		return snap, true
	}
	if n.history.Len() == 0 && n.version <= v {
		return Snapshot{Version: n.version, Value: n.value}, true
	}
	return Snapshot{}, false
}

// rollbackTo restores every node touched after v. Children are visited
// unconditionally since a clean parent may still hold an in-flight child.
// Children that did not exist at v are unlinked and returned in removed.
// Nodes whose value changed are returned children first.
func (n *Node) rollbackTo(v int64) (changed, removed []*Node) {
	snap, restorable := n.lookup(v)

	for _, c := range n.childNodes() {
		if restorable && !c.existedAt(v, snap.Value) {
			n.unlink(c.key)
			removed = append(removed, c)
			continue
		}
		ch, rm := c.rollbackTo(v)
		changed = append(changed, ch...)
		removed = append(removed, rm...)
	}

	if !n.dirty && !n.pending && n.version <= v {
		return changed, removed
	}

	if restorable {
		restored := !equal(n.value, snap.Value)
		n.value = snap.Value
		n.version = snap.Version
		if restored {
			changed = append(changed, n)
			n.emitLogged(EventRollback, Snapshot{Version: snap.Version, Value: deepCopy(snap.Value)})
		}
	}
	n.history.TruncateAfter(v)
	n.dirty = false
	n.pending = false
	return changed, removed
}

// existedAt reports whether n had a value at v and its parent, whose value at
// v was parentValue, held n's key.
func (n *Node) existedAt(v int64, parentValue any) bool {
	if _, ok := n.lookup(v); !ok {
		return false
	}
	_, ok := getKey(parentValue, n.key, DetectForm(parentValue))
	return ok
}

// maxVersion returns the highest committed version anywhere in n's subtree.
func (n *Node) maxVersion() int64 {
	highest := n.version
	for _, c := range n.childNodes() {
		if v := c.maxVersion(); v > highest {
			highest = v
		}
	}
	return highest
}

// RollbackTo restores the whole tree, from its root, to the state it had at
// version. The highest version is not reset, so the next commit continues
// the sequence. Subscribers of nodes whose value changed are notified.
func (n *Node) RollbackTo(version int64) error {
	if n.stopped {
		return annotate(n, "rollback", ErrStopped)
	}
	if n.state.isOpen() {
		return annotate(n, "rollback", ErrTransactionOpen)
	}
	if version < 0 {
		return annotate(n, "rollback", fmt.Errorf("negative version %d", version))
	}

	s := n.state
	changed := s.rollback(version)
	s.logger.Info("tree rolled back",
		"node", n.displayPath(),
		"version", version,
		"restoredNodes", len(changed),
	)
	for _, c := range changed {
		c.broadcast()
	}
	return nil
}
