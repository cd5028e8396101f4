package ui

import (
	"fmt"
	"strings"
	"sync"
)

const (
	barFilled = "█"
	barEmpty  = "░"
	barWidth  = 30
)

// ProgressBar redraws a single status line as download jobs settle.
// It draws nothing on a non-interactive or quiet console.
type ProgressBar struct {
	mu      sync.Mutex
	console *Console
	workers int
	done    int
	total   int
	drawn   bool
}

// NewProgress creates a bar for total jobs spread over workers
func (c *Console) NewProgress(total, workers int) *ProgressBar {
	return &ProgressBar{console: c, total: total, workers: workers}
}

// Update records progress; its signature matches the downloader's OnProgress
func (p *ProgressBar) Update(done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done, p.total = done, total
	if p.console.quiet || !p.console.interactive {
		return
	}
	fmt.Fprintf(p.console.out, "\r%s", p.render())
	p.drawn = true
}

// Finish ends the status line
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.drawn {
		fmt.Fprintln(p.console.out)
		p.drawn = false
	}
}

func (p *ProgressBar) render() string {
	filled := 0
	if p.total > 0 {
		filled = p.done * barWidth / p.total
	}
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat(barFilled, filled) + strings.Repeat(barEmpty, barWidth-filled)
	return fmt.Sprintf("%s [%s] %d/%d", Dim(fmt.Sprintf("%3d", p.workers)), Green(bar), p.done, p.total)
}
