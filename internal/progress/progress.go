// Package progress provides a hierarchical, weighted completion tracker.
//
// A Progress node owns a (min, max, value) triple. Nodes can be composed:
// a parent registers children with a weight and derives its relative
// completion from them. Listeners attached to a node are notified whenever
// the relative completion of that node changes, including changes caused by
// descendants.
//
// All methods are safe to call on a nil *Progress, which makes optional
// progress arguments cheap for callers:
//
//	func (l *Library) Export(luid string, pg *progress.Progress) error {
//		defer pg.Done()
//		...
//	}
package progress

import (
	"fmt"
	"math"
	"sync"
)

// Listener is called with the node it was registered on and the name of the
// node whose update caused the change.
type Listener func(p *Progress, name string)

type child struct {
	node   *Progress
	weight int
}

// Progress is a single node of a progress tree.
type Progress struct {
	mu sync.Mutex

	name  string
	min   int
	max   int
	value int
	done  bool

	children  []child
	parent    *Progress
	listeners map[int]Listener
	nextID    int

	// last relative value listeners were told about
	lastRelative float64
}

// New returns a node with the range [0, 100].
func New(name string) *Progress {
	return NewRange(name, 0, 100)
}

// NewRange returns a node with the given range. It panics if min > max.
func NewRange(name string, min, max int) *Progress {
	if min > max {
		panic(fmt.Sprintf("progress: min (%d) > max (%d)", min, max))
	}
	return &Progress{
		name:      name,
		min:       min,
		max:       max,
		value:     min,
		listeners: make(map[int]Listener),
	}
}

// Name returns the node's name.
func (p *Progress) Name() string {
	if p == nil {
		return ""
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

// SetName renames the node and notifies listeners.
func (p *Progress) SetName(name string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.name = name
	p.mu.Unlock()
	p.notify(name, true)
}

// Min returns the lower bound of the node's range.
func (p *Progress) Min() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.min
}

// Max returns the upper bound of the node's range.
func (p *Progress) Max() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.max
}

// SetMinMax redefines the node's range. The current value is clamped into
// the new range. It panics if min > max.
func (p *Progress) SetMinMax(min, max int) {
	if p == nil {
		return
	}
	if min > max {
		panic(fmt.Sprintf("progress: min (%d) > max (%d)", min, max))
	}
	p.mu.Lock()
	p.min = min
	p.max = max
	p.value = clamp(p.value, min, max)
	name := p.name
	p.mu.Unlock()
	p.notify(name, false)
}

// Progress returns the absolute value of the node, derived from its relative
// completion when the node has children.
func (p *Progress) Progress() int {
	if p == nil {
		return 0
	}
	rel := p.Relative()
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.min + int(math.Round(rel*float64(p.max-p.min)))
}

// SetProgress sets the node's own value, clamped to [min, max].
func (p *Progress) SetProgress(value int) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.value = clamp(value, p.min, p.max)
	name := p.name
	p.mu.Unlock()
	p.notify(name, false)
}

// Add moves the node's own value by delta.
func (p *Progress) Add(delta int) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.value = clamp(p.value+delta, p.min, p.max)
	name := p.name
	p.mu.Unlock()
	p.notify(name, false)
}

// Done forces the node and all of its descendants to completion.
func (p *Progress) Done() {
	if p == nil {
		return
	}
	p.mu.Lock()
	if p.done {
		p.mu.Unlock()
		return
	}
	p.done = true
	p.value = p.max
	children := make([]*Progress, 0, len(p.children))
	for _, c := range p.children {
		children = append(children, c.node)
	}
	name := p.name
	p.mu.Unlock()

	for _, c := range children {
		c.Done()
	}
	p.notify(name, false)
}

// IsDone reports whether Done was called on this node (or an ancestor).
func (p *Progress) IsDone() bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Relative returns the completion of the node in [0, 1].
//
// A leaf reports (value-min)/(max-min). A node with children reports the
// weighted mean of its children's completion, Σ(rel*weight)/Σweight.
func (p *Progress) Relative() float64 {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.relativeLocked()
}

func (p *Progress) relativeLocked() float64 {
	if p.done {
		return 1
	}

	if len(p.children) == 0 {
		if p.max == p.min {
			return 0
		}
		return clampFloat(float64(p.value-p.min) / float64(p.max-p.min))
	}

	var total, weights float64
	for _, c := range p.children {
		total += c.node.Relative() * float64(c.weight)
		weights += float64(c.weight)
	}
	if weights == 0 {
		return 0
	}
	return clampFloat(total / weights)
}

// AddProgress registers child as a sub-node contributing weight to this
// node's completion. A child can only belong to one parent.
func (p *Progress) AddProgress(childNode *Progress, weight int) {
	if p == nil || childNode == nil {
		return
	}
	if weight < 0 {
		panic(fmt.Sprintf("progress: negative weight %d", weight))
	}

	childNode.mu.Lock()
	if childNode.parent != nil && childNode.parent != p {
		childNode.mu.Unlock()
		panic("progress: node already has a parent")
	}
	childNode.parent = p
	childNode.mu.Unlock()

	p.mu.Lock()
	p.children = append(p.children, child{node: childNode, weight: weight})
	p.mu.Unlock()
}

// AddProgressListener registers l and returns a function removing it again.
func (p *Progress) AddProgressListener(l Listener) (remove func()) {
	if p == nil || l == nil {
		return func() {}
	}
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = l
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// notify fires listeners if the relative completion changed (or force is
// set) and then propagates the change to the parent.
func (p *Progress) notify(name string, force bool) {
	p.mu.Lock()
	rel := p.relativeLocked()
	changed := force || rel != p.lastRelative
	p.lastRelative = rel
	listeners := make([]Listener, 0, len(p.listeners))
	if changed {
		for _, l := range p.listeners {
			listeners = append(listeners, l)
		}
	}
	parent := p.parent
	p.mu.Unlock()

	if !changed {
		return
	}
	for _, l := range listeners {
		l(p, name)
	}
	if parent != nil {
		parent.notify(name, false)
	}
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampFloat(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
