package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/mrlokans/storyshelf/internal/progress"
)

// ProgressPrinter prints a progress bar line each time the overall
// percentage moves by at least Step.
type ProgressPrinter struct {
	w    io.Writer
	step int

	mu   sync.Mutex
	last int
}

var _ progress.Sink = (*ProgressPrinter)(nil)

func NewProgressPrinter(w io.Writer, step int) *ProgressPrinter {
	if step <= 0 {
		step = 10
	}
	return &ProgressPrinter{w: w, step: step, last: -1}
}

func (p *ProgressPrinter) OnProgress(min, max, value int) {
	percent := 100
	if max > min {
		percent = (value - min) * 100 / (max - min)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last >= 0 && percent < p.last+p.step && !(percent == 100 && p.last != 100) {
		return
	}
	p.last = percent
	fmt.Fprintf(p.w, "  [%-20s] %3d%%\n", bar(percent, 20), percent)
}

func bar(percent, width int) string {
	filled := percent * width / 100
	out := make([]byte, width)
	for i := range out {
		if i < filled {
			out[i] = '#'
		} else {
			out[i] = ' '
		}
	}
	return string(out)
}

// track returns a root progress node printed to w, or nil when quiet.
func track(w io.Writer, name string, quiet bool) (*progress.Progress, func()) {
	if quiet {
		return nil, func() {}
	}
	pg := progress.New(name)
	detach := progress.Attach(pg, NewProgressPrinter(w, 10))
	return pg, detach
}
