package construct

import (
	"errors"
	"fmt"
	"strings"
)

var ErrDuplicateId = errors.New("duplicate construct id")

type (
	// Node is a position in the construct tree. Every construct owns exactly one node and
	// creates child nodes for the constructs and resources it is made of.
	Node struct {
		id       string
		scope    *Node
		stack    *Stack
		children map[string]*Node
		order    []string
	}

	// Scope is anything that can parent a construct.
	Scope interface {
		Node() *Node
	}
)

func (n *Node) Node() *Node {
	return n
}

func (n *Node) Id() string {
	return n.id
}

// Scope returns the parent node, or nil for a stack's root.
func (n *Node) Scope() *Node {
	return n.scope
}

func (n *Node) Stack() *Stack {
	return n.stack
}

func (n *Node) NewChild(id string) (*Node, error) {
	switch {
	case id == "":
		return nil, fmt.Errorf("construct id under '%s' must not be empty", n.Path())
	case strings.Contains(id, "/"):
		return nil, fmt.Errorf("construct id '%s' must not contain '/'", id)
	}
	if _, ok := n.children[id]; ok {
		return nil, fmt.Errorf("%w: '%s' already exists under '%s'", ErrDuplicateId, id, n.Path())
	}
	child := &Node{id: id, scope: n, stack: n.stack}
	if n.children == nil {
		n.children = make(map[string]*Node)
	}
	n.children[id] = child
	n.order = append(n.order, id)
	return child, nil
}

func (n *Node) removeChild(id string) {
	if _, ok := n.children[id]; !ok {
		return
	}
	delete(n.children, id)
	for i, c := range n.order {
		if c == id {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
}

// Child returns the direct child with the given id.
func (n *Node) Child(id string) (*Node, bool) {
	c, ok := n.children[id]
	return c, ok
}

// Children returns the direct children in creation order.
func (n *Node) Children() []*Node {
	children := make([]*Node, 0, len(n.order))
	for _, id := range n.order {
		children = append(children, n.children[id])
	}
	return children
}

// Components returns the ids from the stack root down to this node, inclusive.
func (n *Node) Components() []string {
	var comps []string
	for cur := n; cur != nil; cur = cur.scope {
		comps = append(comps, cur.id)
	}
	for i, j := 0, len(comps)-1; i < j; i, j = i+1, j-1 {
		comps[i], comps[j] = comps[j], comps[i]
	}
	return comps
}

func (n *Node) Path() string {
	return strings.Join(n.Components(), "/")
}

func (n *Node) String() string {
	return n.Path()
}
