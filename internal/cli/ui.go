// The cli package renders factorizations on the terminal: a spinner with a
// progress bar while the sieve collects relations, and the result formats
// (table details, quiet lines, JSON, files) once it is done.
package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/agbru/qsieve/internal/qsieve"
	"github.com/agbru/qsieve/internal/ui"
	"github.com/agbru/qsieve/pkg/models"
	"github.com/briandowns/spinner"
)

// FormatExecutionDuration formats a time.Duration for display.
// It shows microseconds for durations less than a millisecond, milliseconds for
// durations less than a second, and the default string representation otherwise.
//
// Parameters:
//   - d: The duration to format.
//
// Returns:
//   - string: A formatted string representing the duration.
func FormatExecutionDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "< 1µs"
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(time.Millisecond).String()
}

const (
	// TruncationLimit is the digit count from which numbers are shortened in
	// tables.
	TruncationLimit = 60
	// DisplayEdges is the number of digits kept at each end of a shortened
	// number.
	DisplayEdges = 20
	// ProgressRefreshRate defines the refresh frequency of the progress bar.
	ProgressRefreshRate = 200 * time.Millisecond
	// ProgressBarWidth defines the width in characters of the progress bar.
	ProgressBarWidth = 40
)

// TruncateDigits shortens a decimal string longer than TruncationLimit to
// its edges around an ellipsis.
func TruncateDigits(s string) string {
	if len(s) <= TruncationLimit {
		return s
	}
	return s[:DisplayEdges] + "..." + s[len(s)-DisplayEdges:]
}

// Spinner abstracts the terminal spinner so DisplayProgress can be tested
// without a terminal.
type Spinner interface {
	// Start begins the spinner animation.
	Start()
	// Stop halts the spinner animation.
	Stop()
	// UpdateSuffix sets the text that is displayed after the spinner.
	UpdateSuffix(suffix string)
}

// realSpinner adapts spinner.Spinner to Spinner.
type realSpinner struct {
	s *spinner.Spinner
}

func (rs *realSpinner) Start() { rs.s.Start() }

func (rs *realSpinner) Stop() { rs.s.Stop() }

func (rs *realSpinner) UpdateSuffix(suffix string) {
	rs.s.Lock()
	rs.s.Suffix = suffix
	rs.s.Unlock()
}

var newSpinner = func(options ...spinner.Option) Spinner {
	s := spinner.New(spinner.CharSets[11], ProgressRefreshRate, options...)
	return &realSpinner{s}
}

// ProgressState holds the latest progress of each concurrent factorization.
type ProgressState struct {
	progresses []float64
}

// NewProgressState tracks count factorizations, all starting at 0.
func NewProgressState(count int) *ProgressState {
	return &ProgressState{progresses: make([]float64, max(count, 0))}
}

// Update records the progress of one factorization. Out-of-range indices
// are ignored and values are clamped to [0, 1].
func (ps *ProgressState) Update(index int, value float64) {
	if index < 0 || index >= len(ps.progresses) {
		return
	}
	ps.progresses[index] = min(max(value, 0), 1)
}

// CalculateAverage returns the mean progress over all factorizations.
func (ps *ProgressState) CalculateAverage() float64 {
	if len(ps.progresses) == 0 {
		return 0
	}
	var total float64
	for _, p := range ps.progresses {
		total += p
	}
	return total / float64(len(ps.progresses))
}

// progressBar renders progress in [0, 1] as a bar of length cells.
func progressBar(progress float64, length int) string {
	progress = min(max(progress, 0), 1)
	filled := int(progress * float64(length))
	return strings.Repeat("█", filled) + strings.Repeat("░", length-filled)
}

// DisplayProgress renders a spinner with the average relation progress of
// the running factorizations until progressChan is closed, then prints a
// final 100% line.
//
// Parameters:
//   - wg: Signalled when the display routine returns.
//   - progressChan: The channel receiving progress updates.
//   - count: The number of factorizations contributing to the progress.
//   - out: The io.Writer to which the progress bar is rendered.
func DisplayProgress(wg *sync.WaitGroup, progressChan <-chan qsieve.ProgressUpdate, count int, out io.Writer) {
	defer wg.Done()
	if count <= 0 {
		for range progressChan {
		}
		return
	}

	label := "Relations"
	if count > 1 {
		label = "Avg relations"
	}
	state := NewProgressWithETA(count)
	s := newSpinner(spinner.WithWriter(out))
	s.Start()

	ticker := time.NewTicker(ProgressRefreshRate)
	defer ticker.Stop()

	for {
		select {
		case update, ok := <-progressChan:
			if !ok {
				s.Stop()
				fmt.Fprintf(out, "%s: %s\n", label, FormatProgressBarWithETA(1, 0, ProgressBarWidth))
				return
			}
			state.UpdateWithETA(update.Index, update.Value)
		case <-ticker.C:
			s.UpdateSuffix(fmt.Sprintf(" %s: %s", label,
				FormatProgressBarWithETA(state.CalculateAverage(), state.GetETA(), ProgressBarWidth)))
		}
	}
}

// DisplayDetails prints the sieve statistics of one result.
//
// Parameters:
//   - res: The result document.
//   - out: The io.Writer for the output.
func DisplayDetails(res models.FactorResult, out io.Writer) {
	theme := ui.GetCurrentTheme()
	stat := func(v any) string { return ui.Colorize(theme.Stat, fmt.Sprint(v)) }

	fmt.Fprintf(out, "\n%s--- Details for %s (%d bits) ---%s\n",
		theme.Bold, TruncateDigits(res.N), res.Bits, theme.Reset)
	fmt.Fprintf(out, "Method              : %s\n", res.Method)
	fmt.Fprintf(out, "Total time          : %s\n",
		stat(FormatExecutionDuration(time.Duration(res.DurationMs*float64(time.Millisecond)))))
	if len(res.Sieve) == 0 {
		return
	}
	for i, st := range res.Sieve {
		fmt.Fprintf(out, "Attempt %d\n", i+1)
		fmt.Fprintf(out, "  Multiplier        : %s\n", stat(st.Multiplier))
		fmt.Fprintf(out, "  Factor base       : %s primes, largest %s\n", stat(st.FactorBaseSize), stat(st.LargestPrime))
		fmt.Fprintf(out, "  Polynomials       : %s over %s A values\n", stat(st.Polynomials), stat(st.AValues))
		fmt.Fprintf(out, "  Relations         : %s full, %s partial, %s combined\n",
			stat(st.FullRelations), stat(st.PartialRelations), stat(st.CombinedRelations))
		fmt.Fprintf(out, "  Dependencies      : %s\n", stat(st.Dependencies))
		fmt.Fprintf(out, "  Time              : %s\n",
			stat(FormatExecutionDuration(time.Duration(st.DurationMs*float64(time.Millisecond)))))
	}
}
