package tree

import (
	"github.com/hashicorp/go-multierror"
)

// Complete tears the node down: children first, then the complete event,
// then every handler and subscription. The node leaves its parent's children
// (its slice of the parent's value stays) and rejects further mutation with
// ErrStopped. Completing a stopped node is a no-op.
func (n *Node) Complete() error {
	if n.stopped {
		return nil
	}
	err := n.complete()
	n.state.logger.Info("node completed",
		"node", n.displayPath(),
		"version", n.version,
	)
	return err
}

func (n *Node) complete() error {
	var result *multierror.Error
	for _, c := range n.childNodes() {
		if err := c.complete(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := n.Emit(EventComplete, nil); err != nil {
		result = multierror.Append(result, err)
	}
	n.handlers = nil
	n.subscribers = nil
	if p := n.parent; p != nil && p.children[n.key] == n {
		p.unlink(n.key)
	}
	n.stopped = true
	return result.ErrorOrNil()
}

// completeDetached completes a node its parent has already let go of. The
// removal has settled, so handler failures are only logged.
func (n *Node) completeDetached() {
	if err := n.Complete(); err != nil {
		n.state.logger.Warn("complete handler failed",
			"node", n.displayPath(),
			"error", err,
		)
	}
}
