package timing

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

const (
	recapWidth = 70
	// Number of bar characters representing 100% of the cycle.
	barWidth = 50
)

// PrintRecap writes one line per measured phase with its duration, its share of the cycle
// and a proportional bar. Synthetic totals are left out of the percentage base and shown
// only through the TOTAL footer.
func (t *Tracker) PrintRecap(out io.Writer) {
	_, _ = fmt.Fprintf(out, "\n%s\n", strings.Repeat("=", recapWidth))
	_, _ = fmt.Fprintf(out, " TIMING SUMMARY\n")
	_, _ = fmt.Fprintf(out, "%s\n", strings.Repeat("=", recapWidth))

	var phases []PhaseMeasurement
	var total time.Duration
	for _, m := range t.measurements {
		if m.Category == CategoryTotal {
			continue
		}
		phases = append(phases, m)
		total += m.Duration
	}
	if len(phases) == 0 {
		_, _ = fmt.Fprintf(out, "No operations recorded\n")
		return
	}

	bar := barColor(out)
	_, _ = fmt.Fprintln(out)
	for _, m := range phases {
		percentage := 0.0
		if total > 0 {
			percentage = float64(m.Duration) / float64(total) * 100
		}
		_, _ = fmt.Fprintf(out, "  %-30s %6.2fs  %5.1f%%  %s\n",
			m.Name, m.Duration.Seconds(), percentage, bar.Sprint(strings.Repeat("█", barLength(percentage))))
	}
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintf(out, "%s\n", strings.Repeat("-", recapWidth))
	_, _ = fmt.Fprintf(out, "  %-30s %6.2fs  100.0%%\n", "TOTAL", total.Seconds())
	_, _ = fmt.Fprintf(out, "%s\n", strings.Repeat("=", recapWidth))
}

func barLength(percentage float64) int {
	n := int(percentage * barWidth / 100)
	if n < 0 {
		return 0
	}
	if n > barWidth {
		return barWidth
	}
	return n
}

// barColor only colours output written to a terminal.
func barColor(out io.Writer) *color.Color {
	c := color.New(color.FgGreen)
	if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}
