package cli

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/agbru/qsieve/internal/qsieve"
	"github.com/agbru/qsieve/internal/testutil"
	"github.com/agbru/qsieve/pkg/models"
	"github.com/briandowns/spinner"
)

// MockSpinner records spinner calls.
type MockSpinner struct {
	started bool
	stopped bool
	suffix  string
}

func (m *MockSpinner) Start()                     { m.started = true }
func (m *MockSpinner) Stop()                      { m.stopped = true }
func (m *MockSpinner) UpdateSuffix(suffix string) { m.suffix = suffix }

func TestFormatExecutionDuration(t *testing.T) {
	t.Parallel()
	tests := []struct {
		d        time.Duration
		expected string
	}{
		{0, "< 1µs"},
		{500 * time.Nanosecond, "0µs"},
		{10 * time.Microsecond, "10µs"},
		{10 * time.Millisecond, "10ms"},
		{2 * time.Second, "2s"},
		{1500*time.Millisecond + 400*time.Microsecond, "1.5s"},
	}

	for _, tt := range tests {
		if got := FormatExecutionDuration(tt.d); got != tt.expected {
			t.Errorf("FormatExecutionDuration(%v) = %s; want %s", tt.d, got, tt.expected)
		}
	}
}

func TestTruncateDigits(t *testing.T) {
	t.Parallel()

	short := strings.Repeat("7", TruncationLimit)
	if got := TruncateDigits(short); got != short {
		t.Errorf("number at the limit was truncated: %s", got)
	}
	long := strings.Repeat("1", DisplayEdges) + strings.Repeat("5", 50) + strings.Repeat("9", DisplayEdges)
	want := strings.Repeat("1", DisplayEdges) + "..." + strings.Repeat("9", DisplayEdges)
	if got := TruncateDigits(long); got != want {
		t.Errorf("TruncateDigits = %s, want %s", got, want)
	}
}

func TestProgressBar(t *testing.T) {
	t.Parallel()
	tests := []struct {
		progress float64
		length   int
		want     string
	}{
		{0.0, 10, "░░░░░░░░░░"},
		{0.5, 10, "█████░░░░░"},
		{1.0, 10, "██████████"},
		{1.2, 10, "██████████"},
		{-0.1, 10, "░░░░░░░░░░"},
	}

	for _, tt := range tests {
		if got := progressBar(tt.progress, tt.length); got != tt.want {
			t.Errorf("progressBar(%f, %d) = %s; want %s", tt.progress, tt.length, got, tt.want)
		}
	}
}

func TestProgressState(t *testing.T) {
	t.Parallel()

	ps := NewProgressState(2)
	ps.Update(0, 0.5)
	ps.Update(1, 2)
	ps.Update(7, 1)
	if got := ps.CalculateAverage(); got != 0.75 {
		t.Errorf("average = %v, want 0.75", got)
	}
	if got := NewProgressState(0).CalculateAverage(); got != 0 {
		t.Errorf("empty average = %v", got)
	}
}

func TestDisplayDetails(t *testing.T) {
	t.Parallel()

	res := models.FactorResult{
		N:          "424559803594048253",
		Bits:       59,
		Factors:    []string{"650830067", "652336279"},
		Complete:   true,
		Method:     "sieve",
		Attempts:   1,
		DurationMs: 12,
		Sieve: []models.SieveStats{{
			Multiplier: 3, FactorBaseSize: 100, LargestPrime: 1187,
			AValues: 4, Polynomials: 16, FullRelations: 150, PartialRelations: 40,
			CombinedRelations: 14, Dependencies: 48, DurationMs: 11,
		}},
	}
	var buf bytes.Buffer
	DisplayDetails(res, &buf)
	out := testutil.StripAnsiCodes(buf.String())
	for _, want := range []string{
		"Details for 424559803594048253 (59 bits)",
		"Method              : sieve",
		"Attempt 1",
		"100 primes, largest 1187",
		"16 over 4 A values",
		"150 full, 40 partial, 14 combined",
		"Dependencies      : 48",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	DisplayDetails(models.FactorResult{N: "91", Bits: 7, Method: "trial-division"}, &buf)
	if strings.Contains(buf.String(), "Attempt") {
		t.Errorf("trial division printed sieve attempts:\n%s", buf.String())
	}
}

func TestRealSpinner(t *testing.T) {
	t.Parallel()
	rs := &realSpinner{spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(io.Discard))}
	rs.Start()
	rs.UpdateSuffix(" test")
	rs.Stop()
}

// TestDisplayProgress replaces the package spinner factory, so it does not
// run in parallel.
func TestDisplayProgress(t *testing.T) {
	originalNewSpinner := newSpinner
	defer func() { newSpinner = originalNewSpinner }()

	mockS := &MockSpinner{}
	newSpinner = func(options ...spinner.Option) Spinner { return mockS }

	var wg sync.WaitGroup
	wg.Add(1)
	progressChan := make(chan qsieve.ProgressUpdate)
	go func() {
		progressChan <- qsieve.ProgressUpdate{Index: 0, Value: 0.5}
		time.Sleep(2 * ProgressRefreshRate)
		close(progressChan)
	}()

	var out bytes.Buffer
	DisplayProgress(&wg, progressChan, 1, &out)
	wg.Wait()

	if !mockS.started || !mockS.stopped {
		t.Errorf("spinner started=%v stopped=%v", mockS.started, mockS.stopped)
	}
	if !strings.Contains(mockS.suffix, "50.00%") {
		t.Errorf("suffix = %q, want the 50%% progress", mockS.suffix)
	}
	if !strings.Contains(out.String(), "100.00%") {
		t.Errorf("final line missing: %q", out.String())
	}
}

func TestDisplayProgress_NoInputs(t *testing.T) {
	t.Parallel()

	var wg sync.WaitGroup
	wg.Add(1)
	progressChan := make(chan qsieve.ProgressUpdate, 1)
	progressChan <- qsieve.ProgressUpdate{Index: 0, Value: 1}
	close(progressChan)

	DisplayProgress(&wg, progressChan, 0, io.Discard)
	wg.Wait()
}
