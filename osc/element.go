// Package osc decodes and encodes Open Sound Control 1.0 packets into a
// typed, tree-shaped value model.
package osc

import (
	"fmt"
	"time"
)

// Element is a decoded OSC value: a Message, a Bundle, or one of the
// primitive argument types (Int32, Float32, String, Blob, Timetag).
//
// Each Element is exclusively owned by its parent; there is no sharing and
// no cycles. Destroying the root is just letting it become unreachable, Go
// takes care of the rest.
type Element interface {
	isElement()
}

// Message holds an OSC address and its ordered argument list. The argument
// order matches the order of type-tag characters in the encoded type-tag
// string.
type Message struct {
	Address   string
	Arguments []Element
}

func (*Message) isElement() {}

// Bundle groups child Elements (each a *Message or *Bundle) under a common
// Timetag.
type Bundle struct {
	Time     Timetag
	Elements []Element
}

func (*Bundle) isElement() {}

// Int32 is a signed 32-bit integer argument.
type Int32 int32

func (Int32) isElement() {}

// Float32 is an IEEE-754 single-precision float argument.
type Float32 float32

func (Float32) isElement() {}

// String is a NUL-terminated argument string, without the terminator.
type String string

func (String) isElement() {}

// Blob is an opaque byte-sequence argument.
type Blob []byte

func (Blob) isElement() {}

// Format renders an Element as a human-readable, non-normative string. It
// exists purely for diagnostics; callers must not parse its output.
func Format(e Element) string {
	switch v := e.(type) {
	case nil:
		return "<nil>"
	case *Message:
		s := v.Address
		for _, arg := range v.Arguments {
			s += " " + Format(arg)
		}
		return s
	case *Bundle:
		s := "#bundle"
		if v.Time.IsImmediate() {
			s += " immediately"
		} else {
			s += " " + v.Time.Time().Format(time.RFC3339Nano)
		}
		for _, el := range v.Elements {
			s += "\n  " + Format(el)
		}
		return s
	case Int32:
		return fmt.Sprintf("%d", int32(v))
	case Float32:
		return fmt.Sprintf("%g", float32(v))
	case String:
		return fmt.Sprintf("%q", string(v))
	case Blob:
		return fmt.Sprintf("blob(%d)", len(v))
	case Timetag:
		if v.IsImmediate() {
			return "immediately"
		}
		return v.Time().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", v)
	}
}
