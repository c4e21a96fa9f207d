package tree

import (
	"errors"
	"fmt"
)

var (
	// ErrFormMismatch is returned when a value's structural form disagrees with the node's form.
	ErrFormMismatch = errors.New("canopy: value form does not match node form")

	// ErrTypeMismatch is returned when a type-pinned node receives a scalar of another type.
	ErrTypeMismatch = errors.New("canopy: value type does not match pinned type")

	// ErrValidationRejected is returned when a validator rejects a change.
	ErrValidationRejected = errors.New("canopy: change rejected by validation")

	// ErrStopped is returned when a mutation is attempted on a completed node.
	ErrStopped = errors.New("canopy: node is stopped")

	// ErrPathNotFound is returned when a child path cannot be resolved to a node.
	ErrPathNotFound = errors.New("canopy: child path not found")

	// ErrNotCompound is returned when a keyed operation targets a scalar node.
	ErrNotCompound = errors.New("canopy: node value has no keys")

	// ErrTransactionOpen is returned by operations that require a settled tree.
	ErrTransactionOpen = errors.New("canopy: transaction in progress")

	// ErrInvalidChild is returned when a child key or node cannot be attached.
	ErrInvalidChild = errors.New("canopy: invalid child")
)

// NodeError annotates a failure with the node that raised it.
type NodeError struct {
	// Path is the dotted path of the offending node ("" for the root).
	Path string

	// Op is the operation that failed (e.g. "next", "set").
	Op string

	Err error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	path := e.Path
	if path == "" {
		path = rootName
	}
	return fmt.Sprintf("%s %s: %v", e.Op, path, e.Err)
}

// Unwrap returns the underlying error.
func (e *NodeError) Unwrap() error { return e.Err }

// ValidationError carries every validator failure for one change.
type ValidationError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("canopy: change rejected by validation: %v", e.Err)
}

// Unwrap returns the aggregated validator failures.
func (e *ValidationError) Unwrap() error { return e.Err }

// Is matches ErrValidationRejected.
func (e *ValidationError) Is(target error) bool { return target == ErrValidationRejected }

// PathError reports the first path segment that could not be resolved.
type PathError struct {
	Path    string
	Segment string
}

// Error implements the error interface.
func (e *PathError) Error() string {
	return fmt.Sprintf("canopy: child path %q not found (at %q)", e.Path, e.Segment)
}

// Is matches ErrPathNotFound.
func (e *PathError) Is(target error) bool { return target == ErrPathNotFound }

// annotate wraps err with n's path unless it already names a node.
func annotate(n *Node, op string, err error) error {
	var ne *NodeError
	if errors.As(err, &ne) {
		return err
	}
	return &NodeError{Path: n.Path(), Op: op, Err: err}
}
