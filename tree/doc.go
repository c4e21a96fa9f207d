// Package tree provides an in-process, hierarchical, versioned value store.
//
// A tree is made of [Node] values. Each node holds a value and may delegate
// keyed slices of it (record fields, map keys, list indices) to child nodes
// that validate and version their own slice while the parent keeps the
// aggregate consistent.
//
// # Key Features
//
//   - Tree-wide atomic transactions without a central lock
//   - Monotonic versions with per-node history and point-in-time reads
//   - Partial updates: compound values merge onto the current value
//   - Structural forms (scalar, list, map, record) fixed at first value
//   - Named validators that can reject any change
//   - Rollback to any earlier version, from any node
//
// # Propagation
//
// [Node.Next] proposes a value. Inside one transaction the node validates it,
// pushes the differing slices down to its children, and folds its own value
// into its parent, which continues toward the root. Children are always
// handled before their parent:
//
//	root, _ := tree.New(tree.Record{"x": 0, "y": 0}, tree.DefaultConfig(),
//	    tree.Child{Key: "x"},
//	    tree.Child{Key: "y"},
//	)
//	_ = root.Child("x").Next(3) // root is now {x: 3, y: 0} at version 1
//
// If any step fails the whole tree is rolled back and the error is returned
// wrapped in a [*NodeError] naming the node that raised it.
//
// # Transactions
//
// [Node.Transact] groups several changes into one version. Subscribers see
// the batch once, after the outermost Transact returns. A failed batch restores
// values and child links alike; children removed by [Node.DelKeys] or replaced
// by [Node.AddChild] are completed only when the batch commits:
//
//	err := root.Transact(func() error {
//	    if err := root.Set("x", 1); err != nil {
//	        return err
//	    }
//	    return root.Set("y", 2)
//	})
//
// # Configuration
//
// Use [DefaultConfig] and adjust:
//
//	cfg := tree.DefaultConfig()
//	cfg.PinType = true
//	cfg.Validators = []tree.Validator{{Name: "positive", Fn: positive}}
//
// # Errors
//
// The package defines domain-specific errors:
//
//   - [ErrFormMismatch] - value form differs from the node's form
//   - [ErrTypeMismatch] - scalar type differs on a type-pinned node
//   - [ErrValidationRejected] - a validator rejected the change
//   - [ErrStopped] - the node has been completed
//   - [ErrPathNotFound] - a child path does not resolve
//   - [ErrTransactionOpen] - the operation needs a settled tree
//
// Nodes are not safe for concurrent use. Package stream forwards committed
// values to channels for consumers in other goroutines.
package tree
