package tree

import (
	"errors"
	"fmt"
)

// Direction tells the propagation protocol where a proposed value came from
// and therefore which way it may still travel.
type Direction int

const (
	// Unset is a change issued directly against a node. It fans out to the
	// node's children and folds into its parent.
	Unset Direction = iota

	// Absolute replaces the node's value wholesale, skipping the structural merge
	// and the form pre-check. Used by keyed sets and deletion.
	Absolute

	// TowardChildren is a change pushed down from the parent. It fans out further
	// but does not fold back up.
	TowardChildren

	// TowardParent is a child's value folded into this node. It continues toward
	// the root but does not fan out again.
	TowardParent
)

// String returns the direction's name.
func (d Direction) String() string {
	switch d {
	case Unset:
		return "unset"
	case Absolute:
		return "absolute"
	case TowardChildren:
		return "toward-children"
	case TowardParent:
		return "toward-parent"
	default:
		return "unknown"
	}
}

type changeStatus int

const (
	changeProposed changeStatus = iota
	changeValidated
	changeCommitted
	changeRejected
)

// Change describes one proposed value transition for one node. Validators
// receive it and may reject it.
type Change struct {
	// Value is the value as proposed by the caller (before merging).
	Value any

	// Next is the effective value the node will hold if the change commits.
	Next any

	// Prev is the node's value before the change.
	Prev any

	// Target is the node being changed.
	Target *Node

	// Direction is where the change came from.
	Direction Direction

	status changeStatus
	err    error
}

func newChange(target *Node, value, next any, dir Direction) *Change {
	return &Change{
		Value:     deepCopy(value),
		Next:      deepCopy(next),
		Prev:      deepCopy(target.value),
		Target:    target,
		Direction: dir,
	}
}

// Reject marks the change as failed. The first rejection wins.
func (c *Change) Reject(reason any) {
	if c.err != nil {
		return
	}
	switch r := reason.(type) {
	case nil:
		c.err = errors.New("rejected")
	case error:
		c.err = r
	default:
		c.err = fmt.Errorf("%v", r)
	}
	c.status = changeRejected
}

// Err returns the rejection reason, if any.
func (c *Change) Err() error {
	return c.err
}

// IsStopped reports whether the change was rejected.
func (c *Change) IsStopped() bool {
	return c.status == changeRejected
}

// Committed reports whether the change made it through propagation.
func (c *Change) Committed() bool {
	return c.status == changeCommitted
}

func (c *Change) validated() {
	if c.status == changeProposed {
		c.status = changeValidated
	}
}

// complete marks the change committed. A no-op once rejected.
func (c *Change) complete() {
	if c.status == changeRejected {
		return
	}
	c.status = changeCommitted
}
