package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgress_Leaf(t *testing.T) {
	p := NewRange("leaf", 0, 10)

	assert.Equal(t, 0.0, p.Relative())

	p.SetProgress(5)
	assert.InDelta(t, 0.5, p.Relative(), 1e-9)
	assert.Equal(t, 5, p.Progress())

	p.Add(2)
	assert.InDelta(t, 0.7, p.Relative(), 1e-9)

	p.Add(100)
	assert.Equal(t, 1.0, p.Relative(), "value is clamped to max")

	p.SetProgress(-5)
	assert.Equal(t, 0.0, p.Relative(), "value is clamped to min")
}

func TestProgress_SetMinMaxPanicsOnInvertedRange(t *testing.T) {
	p := New("p")
	assert.Panics(t, func() { p.SetMinMax(10, 1) })
	assert.Panics(t, func() { NewRange("bad", 3, 2) })
}

func TestProgress_SetMinMaxClampsValue(t *testing.T) {
	p := NewRange("p", 0, 100)
	p.SetProgress(80)
	p.SetMinMax(0, 50)
	assert.Equal(t, 50, p.Progress())
	assert.Equal(t, 1.0, p.Relative())
}

func TestProgress_WeightedChildren(t *testing.T) {
	root := New("root")
	fetch := New("fetch")
	parse := New("parse")
	root.AddProgress(fetch, 10)
	root.AddProgress(parse, 90)

	fetch.Done()
	assert.InDelta(t, 0.1, root.Relative(), 1e-9)

	parse.SetProgress(50)
	assert.InDelta(t, 0.1+0.45, root.Relative(), 1e-9)

	parse.Done()
	assert.Equal(t, 1.0, root.Relative())
}

func TestProgress_DoneForcesCompletion(t *testing.T) {
	root := New("root")
	a := New("a")
	b := NewRange("b", 0, 3)
	root.AddProgress(a, 1)
	root.AddProgress(b, 1)
	b.Add(1)

	root.Done()

	assert.Equal(t, 1.0, root.Relative())
	assert.Equal(t, 100, root.Progress())
	assert.True(t, a.IsDone())
	assert.True(t, b.IsDone())
	assert.Equal(t, 3, b.Progress())
}

func TestProgress_MonotonicForForwardUpdates(t *testing.T) {
	root := New("root")
	children := []*Progress{NewRange("c1", 0, 7), NewRange("c2", 0, 3), NewRange("c3", 10, 20)}
	for i, c := range children {
		root.AddProgress(c, i+1)
	}

	last := root.Relative()
	steps := []func(){
		func() { children[0].Add(1) },
		func() { children[1].SetProgress(2) },
		func() { children[2].SetProgress(15) },
		func() { children[0].Add(3) },
		func() { children[1].Add(5) },
		func() { children[2].Add(1) },
		func() { children[0].SetProgress(7) },
		func() { children[2].Done() },
	}
	for _, step := range steps {
		step()
		rel := root.Relative()
		assert.GreaterOrEqual(t, rel, last)
		assert.GreaterOrEqual(t, rel, 0.0)
		assert.LessOrEqual(t, rel, 1.0)
		last = rel
	}

	root.Done()
	assert.Equal(t, 1.0, root.Relative())
}

func TestProgress_ListenersSeeDescendantChanges(t *testing.T) {
	root := New("root")
	mid := New("mid")
	leaf := NewRange("leaf", 0, 4)
	root.AddProgress(mid, 1)
	mid.AddProgress(leaf, 1)

	var names []string
	var values []float64
	remove := root.AddProgressListener(func(p *Progress, name string) {
		assert.Same(t, root, p)
		names = append(names, name)
		values = append(values, p.Relative())
	})

	leaf.Add(1)
	leaf.Add(1)
	require.Len(t, values, 2)
	assert.Equal(t, []string{"leaf", "leaf"}, names)
	assert.InDelta(t, 0.5, values[1], 1e-9)

	remove()
	leaf.Add(1)
	assert.Len(t, values, 2, "removed listener must not fire")
}

func TestProgress_ListenerNotFiredWithoutChange(t *testing.T) {
	p := NewRange("p", 0, 10)
	calls := 0
	p.AddProgressListener(func(*Progress, string) { calls++ })

	p.SetProgress(3)
	p.SetProgress(3)
	p.Add(0)
	assert.Equal(t, 1, calls)
}

func TestProgress_AddProgressRejectsSecondParent(t *testing.T) {
	a := New("a")
	b := New("b")
	c := New("c")
	a.AddProgress(c, 1)
	assert.Panics(t, func() { b.AddProgress(c, 1) })
}

func TestProgress_NilIsNoop(t *testing.T) {
	var p *Progress
	assert.NotPanics(t, func() {
		p.SetProgress(1)
		p.Add(1)
		p.SetMinMax(0, 1)
		p.Done()
		p.AddProgress(New("x"), 1)
		p.AddProgressListener(func(*Progress, string) {})()
	})
	assert.Equal(t, 0.0, p.Relative())
	assert.False(t, p.IsDone())
}

func TestAttach(t *testing.T) {
	p := NewRange("p", 0, 10)
	var got [][3]int
	detach := Attach(p, SinkFunc(func(min, max, value int) {
		got = append(got, [3]int{min, max, value})
	}))

	p.SetProgress(4)
	p.Done()
	detach()
	p.SetMinMax(0, 20)

	assert.Equal(t, [][3]int{{0, 10, 4}, {0, 10, 10}}, got)
}
