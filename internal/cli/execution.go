package cli

import (
	"fmt"
	"io"
	"math/big"
	"runtime"

	"github.com/agbru/qsieve/internal/config"
	"github.com/agbru/qsieve/internal/qsieve"
	"github.com/agbru/qsieve/internal/ui"
)

// PrintExecutionConfig displays the inputs and the sieve parameters chosen
// for each of them.
//
// Parameters:
//   - cfg: The application configuration.
//   - inputs: The parsed inputs.
//   - table: The tuning table in use.
//   - out: The writer for standard output.
func PrintExecutionConfig(cfg config.AppConfig, inputs []*big.Int, table []qsieve.TuneEntry, out io.Writer) {
	theme := ui.GetCurrentTheme()
	fmt.Fprintf(out, "--- Execution Configuration ---\n")
	fmt.Fprintf(out, "Factoring %s input(s) with a timeout of %s.\n",
		ui.Colorize(theme.Input, fmt.Sprint(len(inputs))), ui.Colorize(theme.Warning, cfg.Timeout.String()))
	fmt.Fprintf(out, "Environment: %s logical processors, Go %s, %s sieve worker(s) per input.\n",
		ui.Colorize(theme.Stat, fmt.Sprint(runtime.NumCPU())),
		ui.Colorize(theme.Stat, runtime.Version()),
		ui.Colorize(theme.Stat, fmt.Sprint(cfg.Workers)))
	for _, n := range inputs {
		p := cfg.ApplyOverrides(qsieve.ParamsForBits(n.BitLen(), table))
		fmt.Fprintf(out, "  %s (%d bits): factor base %d, sieve %d, small primes %d\n",
			ui.Colorize(theme.Input, TruncateDigits(n.String())), n.BitLen(),
			p.FBPrimes, p.SieveSize, p.SmallPrimes)
	}
	fmt.Fprintf(out, "\n--- Starting Execution ---\n")
}
