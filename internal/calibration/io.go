package calibration

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/agbru/qsieve/internal/cli"
	"github.com/agbru/qsieve/internal/ui"
)

// printCalibrationResults prints the timing of each candidate of one row.
func printCalibrationResults(out io.Writer, results []trialResult, best int) {
	theme := ui.GetCurrentTheme()
	tw := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "  Factor base\t│ Mean time\n")
	fmt.Fprintf(tw, "  %s\t┼%s\n", strings.Repeat("─", 12), strings.Repeat("─", 20))
	for _, r := range results {
		dur := ui.Colorize(theme.Error, "N/A")
		if r.Err == nil {
			dur = ui.Colorize(theme.Warning, cli.FormatExecutionDuration(r.Duration))
		}
		mark := ""
		if r.FBPrimes == best && r.Err == nil {
			mark = " " + ui.Colorize(theme.Factor, "(Optimal)")
		}
		fmt.Fprintf(tw, "  %s\t│ %s%s\n", ui.Colorize(theme.Input, fmt.Sprintf("%d primes", r.FBPrimes)), dur, mark)
	}
	tw.Flush()
}

// printProfileSummary lists the rows a profile overrides.
func printProfileSummary(out io.Writer, p *Profile, elapsed time.Duration) {
	theme := ui.GetCurrentTheme()
	fmt.Fprintf(out, "\n--- Calibration Summary (%s) ---\n", cli.FormatExecutionDuration(elapsed))
	for _, e := range p.Entries {
		fmt.Fprintf(out, "  ≤ %s bits: factor base %s, sieve %d, small primes %d\n",
			ui.Colorize(theme.Input, fmt.Sprint(e.Bits)),
			ui.Colorize(theme.Factor, fmt.Sprint(e.FBPrimes)),
			e.SieveSize, e.SmallPrimes)
	}
}
