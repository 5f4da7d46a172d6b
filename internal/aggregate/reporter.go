package aggregate

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/sells-group/postcode-cli/internal/model"
)

// Reporter receives traversal progress. Calls come from the walking
// goroutine in order.
type Reporter interface {
	Start(towns int)
	Town(index, total int, town model.Town)
	Street(index, total int, street model.Street)
	Finish()
}

// NopReporter discards progress.
type NopReporter struct{}

func (NopReporter) Start(int)                     {}
func (NopReporter) Town(int, int, model.Town)     {}
func (NopReporter) Street(int, int, model.Street) {}
func (NopReporter) Finish()                       {}

// LineReporter prints one line per town and street:
//
//	[3/68] [TOWN] Attard
//	[1/120] [STREET] Triq il-Kbira
type LineReporter struct {
	w io.Writer
}

// NewLineReporter creates a LineReporter writing to w.
func NewLineReporter(w io.Writer) *LineReporter {
	return &LineReporter{w: w}
}

func (r *LineReporter) Start(int) {}

func (r *LineReporter) Town(index, total int, town model.Town) {
	fmt.Fprintf(r.w, "[%d/%d] [TOWN] %s\n", index, total, town.Name)
}

func (r *LineReporter) Street(index, total int, street model.Street) {
	fmt.Fprintf(r.w, "[%d/%d] [STREET] %s\n", index, total, street.Name)
}

func (r *LineReporter) Finish() {}

// BarReporter renders a progress bar over towns, described with the street
// currently being read.
type BarReporter struct {
	w    io.Writer
	bar  *progressbar.ProgressBar
	town string
}

// NewBarReporter creates a BarReporter writing to w.
func NewBarReporter(w io.Writer) *BarReporter {
	return &BarReporter{w: w}
}

func (r *BarReporter) Start(towns int) {
	r.bar = progressbar.NewOptions(towns,
		progressbar.OptionSetWriter(r.w),
		progressbar.OptionSetDescription("towns"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(r.w) }),
	)
}

func (r *BarReporter) Town(index, _ int, town model.Town) {
	if r.bar == nil {
		return
	}
	r.town = town.Name
	_ = r.bar.Set(index - 1)
	r.bar.Describe(town.Name)
}

func (r *BarReporter) Street(index, total int, street model.Street) {
	if r.bar == nil {
		return
	}
	r.bar.Describe(fmt.Sprintf("%s: %s (%d/%d)", r.town, street.Name, index, total))
}

func (r *BarReporter) Finish() {
	if r.bar == nil {
		return
	}
	_ = r.bar.Finish()
}
