// Package progress renders experiment progress as a single terminal line
// whose color moves from red to green.
package progress

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/freeeve/reward-moran/internal/experiment"
)

const barWidth = 30

// Bar is an experiment.Observer drawing to a terminal. On a non-terminal
// writer it prints one plain line per update instead of redrawing.
type Bar struct {
	w     io.Writer
	tty   bool
	start time.Time
	now   func() time.Time
}

// NewBar draws to stderr.
func NewBar() *Bar {
	return NewBarTo(os.Stderr, isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()))
}

// NewBarTo draws to w; tty selects redraw-in-place with 24-bit color.
func NewBarTo(w io.Writer, tty bool) *Bar {
	return &Bar{w: w, tty: tty, now: time.Now}
}

// OnProgress implements experiment.Observer.
func (b *Bar) OnProgress(completed, total int, label string) {
	if b.start.IsZero() {
		b.start = b.now()
	}
	line := b.render(completed, total, label)
	if !b.tty {
		fmt.Fprintln(b.w, line)
		return
	}
	color := experiment.ProgressColor(completed, total)
	fmt.Fprintf(b.w, "\r\x1b[2K%s%s\x1b[0m", ansiColor(color), line)
	if completed >= total {
		fmt.Fprintln(b.w)
	}
}

func (b *Bar) render(completed, total int, label string) string {
	frac := 1.0
	if total > 0 {
		frac = float64(completed) / float64(total)
	}
	filled := int(frac * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	elapsed := b.now().Sub(b.start).Truncate(time.Second)
	return fmt.Sprintf("%s |%s| %d/%d %3.0f%% [%s]", label, bar, completed, total, frac*100, elapsed)
}

// ansiColor turns "#rrggbb" into a 24-bit foreground escape.
func ansiColor(hex string) string {
	if len(hex) != 7 || hex[0] != '#' {
		return ""
	}
	v, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("\x1b[38;2;%d;%d;%dm", v>>16&0xff, v>>8&0xff, v&0xff)
}
