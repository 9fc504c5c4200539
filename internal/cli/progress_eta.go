package cli

import (
	"fmt"
	"time"
)

// maxETA caps estimates; early sieve progress is a poor predictor.
const maxETA = 24 * time.Hour

// ProgressWithETA extends ProgressState with a remaining-time estimate
// derived from an exponentially smoothed progress rate.
type ProgressWithETA struct {
	*ProgressState
	startTime    time.Time
	lastUpdate   time.Time
	lastProgress float64
	progressRate float64 // progress per second, smoothed
}

// NewProgressWithETA creates a tracker for count factorizations.
func NewProgressWithETA(count int) *ProgressWithETA {
	now := time.Now()
	return &ProgressWithETA{
		ProgressState: NewProgressState(count),
		startTime:     now,
		lastUpdate:    now,
	}
}

// UpdateWithETA records the progress of one factorization and returns the
// new average and the estimated time remaining (0 while unknown).
//
// Parameters:
//   - index: The index of the factorization.
//   - value: The new progress value (0.0 to 1.0).
//
// Returns:
//   - progress: The current average progress.
//   - eta: The estimated time remaining.
func (p *ProgressWithETA) UpdateWithETA(index int, value float64) (progress float64, eta time.Duration) {
	p.Update(index, value)
	progress = p.CalculateAverage()

	now := time.Now()
	elapsed := now.Sub(p.startTime)
	if elapsed < 100*time.Millisecond || progress <= 0.001 {
		p.lastUpdate, p.lastProgress = now, progress
		return progress, 0
	}

	if dt := now.Sub(p.lastUpdate).Seconds(); dt > 0.05 {
		if delta := progress - p.lastProgress; delta > 0 {
			if p.progressRate > 0 {
				p.progressRate = 0.7*p.progressRate + 0.3*delta/dt
			} else {
				p.progressRate = progress / elapsed.Seconds()
			}
		}
		p.lastUpdate, p.lastProgress = now, progress
	}
	return progress, p.GetETA()
}

// GetETA returns the current estimate without recording progress.
func (p *ProgressWithETA) GetETA() time.Duration {
	progress := p.CalculateAverage()
	if p.progressRate <= 0 || progress >= 1 {
		return 0
	}
	eta := time.Duration((1 - progress) / p.progressRate * float64(time.Second))
	return min(eta, maxETA)
}

// FormatETA formats an estimate as "< 1s", "45s", "2m30s" or "1h15m".
func FormatETA(eta time.Duration) string {
	switch {
	case eta <= 0:
		return "calculating..."
	case eta < time.Second:
		return "< 1s"
	case eta < time.Minute:
		return fmt.Sprintf("%ds", int(eta.Seconds()))
	case eta < time.Hour:
		m, s := int(eta.Minutes()), int(eta.Seconds())%60
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h, m := int(eta.Hours()), int(eta.Minutes())%60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh%dm", h, m)
}

// FormatProgressBarWithETA renders "45.00% [████░░░░] ETA: 2m30s".
func FormatProgressBarWithETA(progress float64, eta time.Duration, width int) string {
	if progress >= 1 {
		return fmt.Sprintf("%6.2f%% [%s] ETA: %s", 100.0, progressBar(1, width), "< 1s")
	}
	return fmt.Sprintf("%6.2f%% [%s] ETA: %s", progress*100, progressBar(progress, width), FormatETA(eta))
}
