package tree

import (
	"github.com/hashicorp/go-multierror"
)

// Built-in events. Handlers of the change events receive a *Change and can
// abort the transaction by returning an error. Rollback handlers receive the
// restored Snapshot, updated handlers the committed value; their errors are
// logged since the tree has already settled.
const (
	EventChange          = "change"
	EventChangeUp        = "change-up"
	EventChangeFromChild = "change-from-child"
	EventRollback        = "rollback"
	EventUpdated         = "updated"
	EventComplete        = "complete"
)

// Handler receives an event payload.
type Handler func(payload any) error

type handlerRef struct {
	fn Handler
}

type subscriberRef struct {
	fn func(value any)
}

// On registers fn for event and returns a function that removes it.
// Handlers run in registration order. Registering on a completed node is a no-op.
func (n *Node) On(event string, fn Handler) (off func()) {
	if n.stopped || fn == nil {
		return func() {}
	}
	if n.handlers == nil {
		n.handlers = make(map[string][]*handlerRef)
	}
	ref := &handlerRef{fn: fn}
	n.handlers[event] = append(n.handlers[event], ref)
	return func() {
		list := n.handlers[event]
		for i, h := range list {
			if h == ref {
				n.handlers[event] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Emit calls every handler registered for event. All handlers run; their
// errors are combined.
func (n *Node) Emit(event string, payload any) error {
	list := n.handlers[event]
	if len(list) == 0 {
		return nil
	}
	var result *multierror.Error
	for _, h := range append([]*handlerRef(nil), list...) {
		if err := h.fn(payload); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// emitLogged emits an event whose handlers cannot affect the outcome.
func (n *Node) emitLogged(event string, payload any) {
	if err := n.Emit(event, payload); err != nil {
		n.state.logger.Warn("event handler failed",
			"event", event,
			"node", n.displayPath(),
			"error", err,
		)
	}
}

// Subscribe calls fn with the node's current value right away and then with
// every committed value, once per settled batch. The returned function
// unsubscribes.
func (n *Node) Subscribe(fn func(value any)) (unsubscribe func()) {
	if n.stopped || fn == nil {
		return func() {}
	}
	ref := &subscriberRef{fn: fn}
	n.subscribers = append(n.subscribers, ref)
	fn(n.Value())
	return func() {
		for i, s := range n.subscribers {
			if s == ref {
				n.subscribers = append(n.subscribers[:i:i], n.subscribers[i+1:]...)
				return
			}
		}
	}
}

// broadcast delivers the committed value to subscribers and updated handlers.
func (n *Node) broadcast() {
	if n.stopped {
		return
	}
	for _, s := range append([]*subscriberRef(nil), n.subscribers...) {
		s.fn(n.Value())
	}
	n.emitLogged(EventUpdated, n.Value())
}
