package tree

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Next proposes value for n. Compound values are merged one level deep onto
// the current value: keys the proposal names replace their old entries and
// keys it leaves out survive. The change is validated, pushed down to every
// child whose slice differs, and folded up into every ancestor, all in one
// transaction. Any failure rolls the tree back and is returned annotated with
// the node that raised it.
func (n *Node) Next(value any) error {
	return n.next(ingest(value), Unset, "next")
}

func (n *Node) next(value any, dir Direction, op string) error {
	if n.stopped {
		return annotate(n, op, ErrStopped)
	}
	if n.initialized && dir != Absolute {
		if err := n.checkShape(value); err != nil {
			return annotate(n, op, err)
		}
	}
	return n.run(op, func() error {
		return n.apply(value, dir)
	})
}

// checkShape rejects values whose form (or pinned scalar type) differs from n's.
func (n *Node) checkShape(value any) error {
	if n.anyForm {
		return nil
	}
	if f := DetectForm(value); f != n.form {
		return fmt.Errorf("%w: got %s, want %s", ErrFormMismatch, f, n.form)
	}
	if n.pinType && n.form == FormScalar && n.value != nil && value != nil && !sameType(n.value, value) {
		return fmt.Errorf("%w: got %T, want %T", ErrTypeMismatch, value, n.value)
	}
	return nil
}

// apply runs inside a transaction: merge, snapshot, store, validate, then
// children before parent.
func (n *Node) apply(value any, dir Direction) error {
	effective := value
	if dir != Absolute && n.form.Compound() && DetectForm(value) == n.form {
		effective = merge(n.value, value, n.form)
	}

	if !n.pending && !n.history.Has(n.version, n.value) {
		n.history.Snapshot(n.version, n.value)
	}

	change := newChange(n, value, effective, dir)
	if err := n.setValue(effective); err != nil {
		change.Reject(err)
		return err
	}
	n.pending = true

	if err := n.validate(change); err != nil {
		return err
	}
	change.validated()

	if err := n.Emit(EventChange, change); err != nil {
		change.Reject(err)
		return err
	}
	if dir == TowardParent {
		if err := n.Emit(EventChangeFromChild, change); err != nil {
			change.Reject(err)
			return err
		}
	}

	if dir != TowardParent {
		if err := n.fanOut(); err != nil {
			change.Reject(err)
			return err
		}
	}
	if dir != TowardChildren {
		if err := n.foldIntoParent(change); err != nil {
			change.Reject(err)
			return err
		}
	}

	change.complete()
	return nil
}

// setValue stores v. The first assignment fixes the form; later ones must
// match it unless the node accepts any form.
func (n *Node) setValue(v any) error {
	f := DetectForm(v)
	if !n.initialized {
		n.value = v
		n.form = f
		return nil
	}
	if f != n.form {
		if !n.anyForm {
			return fmt.Errorf("%w: got %s, want %s", ErrFormMismatch, f, n.form)
		}
		n.form = f
	}
	if !equal(n.value, v) {
		n.dirty = true
	}
	n.value = v
	return nil
}

// validate runs every validator and aggregates their failures.
func (n *Node) validate(c *Change) error {
	var result *multierror.Error
	for _, v := range n.validators {
		rejected := c.IsStopped()
		err := v.Fn(c)
		if err == nil && !rejected && c.IsStopped() {
			err = c.Err()
		}
		if err == nil {
			continue
		}
		if v.Name != "" {
			err = fmt.Errorf("%s: %w", v.Name, err)
		}
		result = multierror.Append(result, err)
	}
	if result == nil {
		return nil
	}
	verr := &ValidationError{Path: n.Path(), Err: result.ErrorOrNil()}
	c.Reject(verr)
	return verr
}

// fanOut pushes n's value down to every child whose slice differs, in the
// order the children were attached.
func (n *Node) fanOut() error {
	order := append([]any(nil), n.order...)
	for _, key := range order {
		c := n.children[key]
		if c == nil || c.stopped {
			continue
		}
		sub, ok := getKey(n.value, key, n.form)
		if !ok || equal(sub, c.value) {
			continue
		}
		n.state.logger.Debug("pushing change to child",
			"node", n.displayPath(),
			"child", c.displayPath(),
		)
		if err := c.next(sub, TowardChildren, "next"); err != nil {
			return err
		}
		// The child merges partial values onto its own, so its result can carry
		// keys the parent's slice lacked.
		if !equal(c.value, sub) {
			patched, err := setKey(n.value, key, c.value, n.form)
			if err != nil {
				return err
			}
			n.value = patched
		}
	}
	return nil
}

// foldIntoParent writes n's value into a copy of the parent's value at n's key
// and proposes it to the parent.
func (n *Node) foldIntoParent(c *Change) error {
	p := n.parent
	if p == nil || p.children[n.key] != n {
		return nil
	}
	folded, err := setKey(p.value, n.key, n.value, p.form)
	if err != nil {
		return err
	}
	if err := n.Emit(EventChangeUp, c); err != nil {
		return err
	}
	return p.next(folded, TowardParent, "next")
}
