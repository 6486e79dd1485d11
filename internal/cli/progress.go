package cli

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// progressBar renders transfer progress. The bar is created on the first
// update because a download only learns its size from the peer's header.
type progressBar struct {
	w           io.Writer
	description string
	bar         *progressbar.ProgressBar
}

func newProgressBar(w io.Writer, description string) *progressBar {
	return &progressBar{w: w, description: description}
}

// Update matches the transfer progress callback.
func (p *progressBar) Update(done, total uint64) {
	if p.bar == nil {
		p.bar = progressbar.NewOptions64(int64(total),
			progressbar.OptionSetDescription(p.description),
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}
	_ = p.bar.Set64(int64(done))
}

// Finish completes or abandons the bar. Safe on a nil receiver.
func (p *progressBar) Finish(ok bool) {
	if p == nil || p.bar == nil {
		return
	}
	if ok {
		_ = p.bar.Finish()
		return
	}
	_ = p.bar.Exit()
}
