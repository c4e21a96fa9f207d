package tree

// ValidateFunc inspects a proposed change. Returning an error, or calling
// c.Reject, aborts the transaction.
type ValidateFunc func(c *Change) error

// Validator is a named check run against every change that reaches a node.
type Validator struct {
	// Name identifies the validator in error messages and for RemoveValidator.
	Name string

	// Fn performs the check.
	Fn ValidateFunc
}

// AddValidator appends v to the node's validators. A validator with the same
// non-empty name is replaced in place.
func (n *Node) AddValidator(v Validator) {
	if v.Fn == nil {
		return
	}
	if v.Name != "" {
		for i := range n.validators {
			if n.validators[i].Name == v.Name {
				n.validators[i] = v
				return
			}
		}
	}
	n.validators = append(n.validators, v)
}

// RemoveValidator drops the validator registered under name. It reports
// whether one was found.
func (n *Node) RemoveValidator(name string) bool {
	for i := range n.validators {
		if n.validators[i].Name == name {
			n.validators = append(n.validators[:i:i], n.validators[i+1:]...)
			return true
		}
	}
	return false
}

// Validators returns the names of the node's validators in run order.
func (n *Node) Validators() []string {
	names := make([]string, len(n.validators))
	for i, v := range n.validators {
		names[i] = v.Name
	}
	return names
}
