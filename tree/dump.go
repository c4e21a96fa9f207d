package tree

import (
	"encoding/json"
	"fmt"

	"github.com/xlab/treeprint"
)

// Dump is a diagnostic view of a node and its subtree.
type Dump struct {
	Name     string     `json:"name"`
	Path     string     `json:"path,omitempty"`
	Form     string     `json:"form"`
	Version  int64      `json:"version"`
	Value    any        `json:"value"`
	History  []Snapshot `json:"history,omitempty"`
	Children []Dump     `json:"children,omitempty"`
}

// Dump captures the node's name, value, version and history, recursively.
// Map keys are rendered with fmt so the result always encodes as JSON.
func (n *Node) Dump() Dump {
	d := Dump{
		Name:    n.name,
		Path:    n.Path(),
		Form:    n.form.String(),
		Version: n.version,
		Value:   jsonable(n.value),
	}
	for _, s := range n.history.entries {
		d.History = append(d.History, Snapshot{Version: s.Version, Value: jsonable(s.Value)})
	}
	for _, c := range n.childNodes() {
		d.Children = append(d.Children, c.Dump())
	}
	return d
}

// MarshalJSON encodes the node's Dump. It is meant for diagnostics.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Dump())
}

// String renders the subtree with each node's key, version and value.
func (n *Node) String() string {
	root := treeprint.NewWithRoot(n.label())
	n.print(root)
	return root.String()
}

func (n *Node) print(branch treeprint.Tree) {
	for _, c := range n.childNodes() {
		if len(c.order) == 0 {
			branch.AddNode(c.label())
			continue
		}
		c.print(branch.AddBranch(c.label()))
	}
}

func (n *Node) label() string {
	state := ""
	switch {
	case n.stopped:
		state = " stopped"
	case n.pending:
		state = " in-flight"
	}
	return fmt.Sprintf("%s v%d%s = %s", n.name, n.version, state, n.valueString())
}

func (n *Node) valueString() string {
	b, err := json.Marshal(jsonable(n.value))
	if err != nil {
		return fmt.Sprintf("%v", n.value)
	}
	return string(b)
}

// jsonable converts Map keys to strings, recursively.
func jsonable(v any) any {
	switch t := v.(type) {
	case Record:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = jsonable(e)
		}
		return out
	case Map:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = jsonable(e)
		}
		return out
	case List:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = jsonable(e)
		}
		return out
	}
	return v
}
