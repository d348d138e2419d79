// Package dispatch walks a decoded OSC Element against a method registry
// and invokes every Method reached by the Element's (possibly patterned)
// address, honoring OSC bundle timing rules.
package dispatch

import (
	"github.com/osclib/oscrt/addr"
	"github.com/osclib/oscrt/osc"
	"github.com/osclib/oscrt/registry"
)

// Process dispatches root against reg.
//
//   - A Message is routed by matching its address, segment by segment,
//     against the registry trie; every Method reached this way is invoked,
//     in depth-first registration order. Unmatched messages are dropped
//     silently.
//   - A Bundle whose Timetag is Immediately has each of its children
//     processed, in encoded order. A Bundle with any other timetag is
//     dropped in its entirety — this library does not schedule future
//     delivery (see SPEC_FULL.md §4.4, Open Question 4).
//   - Any other root Element is ignored.
func Process(reg *registry.Registry, root osc.Element) {
	switch e := root.(type) {
	case *osc.Message:
		dispatchMessage(reg, e)
	case *osc.Bundle:
		dispatchBundle(reg, e)
	}
}

func dispatchBundle(reg *registry.Registry, b *osc.Bundle) {
	if !b.Time.IsImmediate() {
		return
	}
	for _, child := range b.Elements {
		Process(reg, child)
	}
}

func dispatchMessage(reg *registry.Registry, msg *osc.Message) {
	segments, err := addr.Split(msg.Address)
	if err != nil {
		return
	}

	frontier := []*registry.Node{reg.Root()}
	for i, seg := range segments {
		last := i == len(segments)-1

		var next []*registry.Node
		for _, node := range frontier {
			for _, child := range node.Children() {
				if !addr.Match(seg, child.Name()) {
					continue
				}
				if last {
					if child.IsMethod() {
						child.Invoke(msg.Arguments)
					}
					continue
				}
				if !child.IsMethod() {
					next = append(next, child)
				}
			}
		}
		frontier = next
	}
}
