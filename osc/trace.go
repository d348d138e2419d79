package osc

import (
	"fmt"
	"strings"
)

// Trace accumulates a human-readable log of where a Decode call was, for
// diagnosing malformed packets. Passing a Trace to Decode (via WithTrace)
// costs a small amount of string building on every decode; omit it on the
// happy path.
type Trace struct {
	b strings.Builder
}

// NewTrace returns an empty Trace ready for use with WithTrace.
func NewTrace() *Trace {
	return &Trace{}
}

func (t *Trace) enter(what string) {
	if t == nil {
		return
	}
	t.b.WriteString("entering ")
	t.b.WriteString(what)
	t.b.WriteByte('\n')
}

func (t *Trace) note(format string, args ...any) {
	if t == nil {
		return
	}
	t.b.WriteString(fmt.Sprintf(format, args...))
	t.b.WriteByte('\n')
}

// String returns the accumulated trace log.
func (t *Trace) String() string {
	if t == nil {
		return ""
	}
	return t.b.String()
}
