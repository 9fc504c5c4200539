package cli

import (
	"strings"
	"testing"
	"time"
)

func TestNewProgressWithETA(t *testing.T) {
	t.Parallel()
	p := NewProgressWithETA(3)

	if p.ProgressState == nil || len(p.progresses) != 3 {
		t.Fatalf("tracker not sized for 3 inputs: %+v", p)
	}
	if p.progressRate != 0 || p.startTime.IsZero() {
		t.Errorf("rate %f, start %v", p.progressRate, p.startTime)
	}
	if eta := p.GetETA(); eta != 0 {
		t.Errorf("ETA before any relation = %v, want 0", eta)
	}
}

func TestUpdateWithETA(t *testing.T) {
	t.Parallel()
	p := NewProgressWithETA(2)

	if progress, eta := p.UpdateWithETA(0, 0.25); progress != 0.125 || eta < 0 {
		t.Errorf("first update = (%f, %v), want (0.125, >= 0)", progress, eta)
	}
	if progress, _ := p.UpdateWithETA(1, 0.5); progress != 0.375 {
		t.Errorf("second update average = %f, want 0.375", progress)
	}

	// Indices outside the batch are ignored.
	p.UpdateWithETA(7, 1)
	p.UpdateWithETA(-1, 1)
	if avg := p.CalculateAverage(); avg != 0.375 {
		t.Errorf("average after out-of-range updates = %f", avg)
	}
}

func TestGetETA(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		progress float64
		rate     float64
		want     time.Duration
	}{
		{"Half done at 10%/s", 0.5, 0.1, 5 * time.Second},
		{"No rate yet", 0.5, 0, 0},
		{"Finished", 1, 0.1, 0},
		{"Capped", 0.001, 1e-9, maxETA},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := NewProgressWithETA(1)
			p.Update(0, tt.progress)
			p.progressRate = tt.rate
			got := p.GetETA()
			if diff := got - tt.want; diff < -time.Millisecond || diff > time.Millisecond {
				t.Errorf("GetETA() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatETA(t *testing.T) {
	t.Parallel()
	tests := []struct {
		eta  time.Duration
		want string
	}{
		{0, "calculating..."},
		{-time.Second, "calculating..."},
		{300 * time.Millisecond, "< 1s"},
		{42 * time.Second, "42s"},
		{3 * time.Minute, "3m"},
		{3*time.Minute + 5*time.Second, "3m5s"},
		{5 * time.Hour, "5h"},
		{2*time.Hour + 40*time.Minute, "2h40m"},
	}
	for _, tt := range tests {
		if got := FormatETA(tt.eta); got != tt.want {
			t.Errorf("FormatETA(%v) = %q, want %q", tt.eta, got, tt.want)
		}
	}
}

func TestFormatProgressBarWithETA(t *testing.T) {
	t.Parallel()

	got := FormatProgressBarWithETA(0.5, 90*time.Second, 10)
	if !strings.HasPrefix(got, " 50.00% [") || !strings.HasSuffix(got, "] ETA: 1m30s") {
		t.Errorf("half-way bar = %q", got)
	}

	done := FormatProgressBarWithETA(1.2, 0, 10)
	if !strings.HasPrefix(done, "100.00% [") || !strings.HasSuffix(done, "ETA: < 1s") {
		t.Errorf("finished bar = %q", done)
	}
}
