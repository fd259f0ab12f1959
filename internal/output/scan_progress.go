package output

import (
	"fmt"
	"io"
	"sync"

	"github.com/blackwell-systems/devprune/internal/scanner"
)

// ScanProgress renders scanner progress: a spinner while the tree is walked
// and classified, then a bar while build directories are sized.
type ScanProgress struct {
	mu      sync.Mutex
	writer  io.Writer
	root    string
	spinner *Spinner
	bar     *ProgressBar
}

// NewScanProgress returns a progress renderer for a scan of root.
func NewScanProgress(w io.Writer, root string) *ScanProgress {
	return &ScanProgress{writer: w, root: root}
}

// Update is a scanner.ProgressFunc.
func (p *ScanProgress) Update(stage scanner.Stage, done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch stage {
	case scanner.StageWalking:
		if p.spinner == nil {
			p.spinner = NewSpinner(fmt.Sprintf("Scanning %s", p.root))
			p.spinner.SetWriter(p.writer)
			p.spinner.Start()
		}
		if done%100 == 0 {
			p.spinner.UpdateMessage(fmt.Sprintf("Scanning %s (%d directories)", p.root, done))
		}
	case scanner.StageClassifying:
		if p.spinner != nil && (done%100 == 0 || done == total) {
			p.spinner.UpdateMessage(fmt.Sprintf("Detecting projects (%d/%d)", done, total))
		}
	case scanner.StageSizing:
		if p.spinner != nil {
			p.spinner.Stop()
			p.spinner = nil
		}
		if p.bar == nil {
			p.bar = NewProgress(total, "Sizing build directories")
			p.bar.SetWriter(p.writer)
		}
		p.bar.SetCurrent(done)
	}
}

// Finish stops any running indicator.
func (p *ScanProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.spinner != nil {
		p.spinner.Stop()
		p.spinner = nil
	}
	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
}
