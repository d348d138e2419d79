package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osclib/oscrt/osc"
	"github.com/osclib/oscrt/registry"
)

func noop(args []osc.Element, userData any) {}

func TestRegisterBuildsTrie(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Register("/a/b", noop, nil))

	a := r.Root().Children()
	require.Len(t, a, 1)
	assert.Equal(t, "a", a[0].Name())
	assert.False(t, a[0].IsMethod())

	b := a[0].Children()
	require.Len(t, b, 1)
	assert.Equal(t, "b", b[0].Name())
	assert.True(t, b[0].IsMethod())
}

func TestRegisterSiblingOrderIsInsertionOrder(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Register("/fader1", noop, nil))
	require.NoError(t, r.Register("/fader2", noop, nil))
	require.NoError(t, r.Register("/other", noop, nil))

	names := make([]string, 0, 3)
	for _, c := range r.Root().Children() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"fader1", "fader2", "other"}, names)
}

func TestRegisterRootAddressIsSingleEmptySegment(t *testing.T) {
	r := registry.New()
	err := r.Register("/", noop, nil)
	require.NoError(t, err)
	// "/" splits into one empty-string segment, which is a valid (if odd)
	// single-segment registration, not the zero-segment case.
	assert.Len(t, r.Root().Children(), 1)
	assert.Equal(t, "", r.Root().Children()[0].Name())
}

func TestRegisterInvalidAddressRejected(t *testing.T) {
	r := registry.New()
	err := r.Register("no-leading-slash", noop, nil)
	assert.Error(t, err)
	assert.Empty(t, r.Root().Children())
}

func TestRegisterDoesNotReplaceExistingMethod(t *testing.T) {
	r := registry.New()
	var calledFirst bool
	first := func(args []osc.Element, userData any) { calledFirst = true }
	second := func(args []osc.Element, userData any) { t.Fatal("second handler must not be installed") }

	require.NoError(t, r.Register("/a", first, nil))
	require.NoError(t, r.Register("/a", second, nil))

	require.Len(t, r.Root().Children(), 1)
	r.Root().Children()[0].Invoke(nil)
	assert.True(t, calledFirst)
}

func TestRegisterRejectsContainerMethodShapeConflict(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Register("/a/b", noop, nil))
	// "/a" now wants "a" itself to be a Method, but "a" is already a Container.
	require.NoError(t, r.Register("/a", noop, nil))

	a := r.Root().Children()[0]
	assert.False(t, a.IsMethod(), "existing Container must not be demoted to a Method")
	assert.Len(t, a.Children(), 1)
}

func TestRegisterRejectsMethodContainerShapeConflict(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Register("/a", noop, nil))
	// "/a/b" wants to descend through "a" as a Container, but it's a Method.
	require.NoError(t, r.Register("/a/b", noop, nil))

	a := r.Root().Children()[0]
	assert.True(t, a.IsMethod(), "existing Method must not be promoted to a Container")
	assert.Empty(t, a.Children())
}

func TestRegisterDeterministicAcrossRuns(t *testing.T) {
	build := func() []string {
		r := registry.New()
		_ = r.Register("/a/b", noop, nil)
		_ = r.Register("/a/c", noop, nil)
		_ = r.Register("/d", noop, nil)

		var names []string
		var walk func(n *registry.Node)
		walk = func(n *registry.Node) {
			names = append(names, n.Name())
			for _, c := range n.Children() {
				walk(c)
			}
		}
		walk(r.Root())
		return names
	}

	assert.Equal(t, build(), build())
}

func TestInvokePassesArgumentsAndUserData(t *testing.T) {
	r := registry.New()
	var gotArgs []osc.Element
	var gotUserData any

	require.NoError(t, r.Register("/echo", func(args []osc.Element, userData any) {
		gotArgs = args
		gotUserData = userData
	}, "payload"))

	r.Root().Children()[0].Invoke([]osc.Element{osc.Int32(7)})
	assert.Equal(t, []osc.Element{osc.Int32(7)}, gotArgs)
	assert.Equal(t, "payload", gotUserData)
}
