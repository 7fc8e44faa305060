package remote

import (
	"sync"

	"go.uber.org/zap"

	"github.com/mrlokans/storyshelf/internal/metrics"
	"github.com/mrlokans/storyshelf/internal/progress"
)

// forwarder sends progress of a server side operation to the client. Each
// tick blocks until the client acknowledges it, so the operation advances
// at the pace of the connection. There is no timeout: a client that stops
// acknowledging stalls the operation until the connection drops.
type forwarder struct {
	session *session
	metrics *metrics.Collector
	logger  *zap.Logger

	mu     sync.Mutex
	last   [3]int
	sent   bool
	failed bool
}

var _ progress.Sink = (*forwarder)(nil)

func newForwarder(s *session) *forwarder {
	return &forwarder{session: s, metrics: s.metrics, logger: s.logger}
}

// OnProgress forwards (min, max, value) unless it equals the previous
// tick. After a transport failure further ticks are dropped; the
// operation itself keeps running and its reply fails to send.
func (f *forwarder) OnProgress(min, max, value int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tick := [3]int{min, max, value}
	if f.failed || (f.sent && tick == f.last) {
		return
	}
	f.last = tick
	f.sent = true

	if err := f.session.send(&Frame{Kind: KindProgress, Progress: tick[:]}); err != nil {
		f.fail(err)
		return
	}
	if _, err := f.session.expect(KindAck); err != nil {
		f.fail(err)
		return
	}
	f.metrics.ProgressForwarded()
}

func (f *forwarder) fail(err error) {
	f.failed = true
	f.logger.Warn("progress forwarding stopped", zap.Error(err))
}

// attach creates the progress node of an operation with the forwarder
// listening on it.
func (f *forwarder) attach(name string) (*progress.Progress, func()) {
	pg := progress.New(name)
	return pg, progress.Attach(pg, f)
}
