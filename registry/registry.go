// Package registry implements the hierarchical method registry: a trie of
// OSC address segments, rooted at an anonymous container, whose leaves are
// bound callbacks.
package registry

import (
	"github.com/pkg/errors"

	"github.com/osclib/oscrt/addr"
	"github.com/osclib/oscrt/osc"
)

// ErrEmptyAddress is returned by Register for an address with zero
// segments.
var ErrEmptyAddress = errors.New("registry: address must have at least one segment")

// MethodFunc is a registered callback. args is the message's argument
// list (may be empty); userData is the opaque value bound at registration
// time. Both are borrowed for the duration of the call only.
type MethodFunc func(args []osc.Element, userData any)

// Node is one trie node: either a Container (an interior node with named
// children) or a Method (a leaf bound to a callback). A Node is never
// promoted or demoted between the two kinds after creation.
type Node struct {
	name     string
	isMethod bool

	// Container state.
	children []*Node
	byName   map[string]int

	// Method state.
	fn       MethodFunc
	userData any
}

// Name returns the node's own path segment.
func (n *Node) Name() string { return n.name }

// IsMethod reports whether n is a leaf (Method) rather than a Container.
func (n *Node) IsMethod() bool { return n.isMethod }

// Children returns n's children in registration order. It is nil for a
// Method node. Callers must not mutate the returned slice.
func (n *Node) Children() []*Node { return n.children }

// Invoke calls the bound callback with args. It panics if n is not a
// Method; callers are expected to check IsMethod first (dispatch always
// does).
func (n *Node) Invoke(args []osc.Element) {
	n.fn(args, n.userData)
}

func newContainer(name string) *Node {
	return &Node{name: name, byName: make(map[string]int)}
}

func newMethod(name string, fn MethodFunc, userData any) *Node {
	return &Node{name: name, isMethod: true, fn: fn, userData: userData}
}

func (n *Node) child(name string) *Node {
	if idx, ok := n.byName[name]; ok {
		return n.children[idx]
	}
	return nil
}

func (n *Node) appendChild(c *Node) {
	n.byName[c.name] = len(n.children)
	n.children = append(n.children, c)
}

// Registry is a trie of Containers rooted at an anonymous Container,
// resolving OSC addresses down to Method leaves.
type Registry struct {
	root *Node
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{root: newContainer("")}
}

// Root returns the anonymous root Container, for traversal by a dispatcher.
func (r *Registry) Root() *Node { return r.root }

// Register binds fn (with userData) to address. The address is split into
// segments; intermediate segments become Containers, the final segment
// becomes a Method.
//
// If the walk encounters an existing node whose kind conflicts with what
// the registration needs — a Method where a Container must descend, or any
// existing node (Method or Container) at the terminal segment — the whole
// registration is silently rejected: no partial mutation occurs. This
// matches the trie built by the original C dispatcher, where re-registering
// over an existing leaf is a no-op rather than last-writer-wins (see
// DESIGN.md for the recorded Open Question decision).
func (r *Registry) Register(address string, fn MethodFunc, userData any) error {
	segments, err := addr.Split(address)
	if err != nil {
		return errors.Wrap(err, "registry: invalid address")
	}
	if len(segments) == 0 {
		return ErrEmptyAddress
	}

	c := r.root
	for i, seg := range segments {
		last := i == len(segments)-1

		existing := c.child(seg)
		if existing == nil {
			var n *Node
			if last {
				n = newMethod(seg, fn, userData)
			} else {
				n = newContainer(seg)
			}
			c.appendChild(n)
			if !last {
				c = n
			}
			continue
		}

		if last || existing.isMethod {
			// Terminal collision, or a non-terminal segment that names an
			// existing Method: neither shape can accept this registration.
			return nil
		}
		c = existing
	}

	return nil
}
