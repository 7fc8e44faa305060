package progress

// Sink receives progress as absolute (min, max, value) triples. It is the
// seam between a progress tree and whatever displays or transmits it.
type Sink interface {
	OnProgress(min, max, value int)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(min, max, value int)

func (f SinkFunc) OnProgress(min, max, value int) { f(min, max, value) }

// Attach forwards every change of p to sink and returns a function that
// detaches it. The sink is called synchronously from the goroutine that
// updated the tree.
func Attach(p *Progress, sink Sink) (detach func()) {
	if p == nil || sink == nil {
		return func() {}
	}
	return p.AddProgressListener(func(src *Progress, _ string) {
		sink.OnProgress(src.Min(), src.Max(), src.Progress())
	})
}
