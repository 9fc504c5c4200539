// Package calibration persists tuning-table overrides and re-derives them by
// timing the sieve on the current machine.
package calibration

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	apperrors "github.com/agbru/qsieve/internal/errors"
	"github.com/agbru/qsieve/internal/qsieve"
)

// Profile stores calibrated tuning entries along with the hardware they were
// measured on, so that a profile copied to another machine is ignored.
type Profile struct {
	CPUModel    string `json:"cpu_model"`
	CPUFeatures string `json:"cpu_features"`
	NumCPU      int    `json:"num_cpu"`
	GOARCH      string `json:"goarch"`
	GOOS        string `json:"goos"`
	GoVersion   string `json:"go_version"`
	WordSize    int    `json:"word_size"`

	// Entries override rows of the built-in table with the same Bits.
	Entries []qsieve.TuneEntry `json:"entries"`

	CalibratedAt   time.Time `json:"calibrated_at"`
	ProfileVersion int       `json:"profile_version"`
}

const (
	// CurrentProfileVersion changes when the profile layout does.
	CurrentProfileVersion = 1

	// DefaultProfileFileName is the profile name in the home directory.
	DefaultProfileFileName = ".qsieve_tuning.json"
)

// DefaultProfilePath returns ~/.qsieve_tuning.json, or the bare file name
// when the home directory is unknown.
func DefaultProfilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultProfileFileName
	}
	return filepath.Join(home, DefaultProfileFileName)
}

// NewProfile creates an empty profile stamped with the current hardware.
func NewProfile() *Profile {
	return &Profile{
		CPUModel:       cpuModel(),
		CPUFeatures:    cpuFeatures(),
		NumCPU:         runtime.NumCPU(),
		GOARCH:         runtime.GOARCH,
		GOOS:           runtime.GOOS,
		GoVersion:      runtime.Version(),
		WordSize:       32 << (^uint(0) >> 63),
		CalibratedAt:   time.Now(),
		ProfileVersion: CurrentProfileVersion,
	}
}

// LoadProfile reads a profile; an empty path means DefaultProfilePath.
func LoadProfile(path string) (*Profile, error) {
	if path == "" {
		path = DefaultProfilePath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to read profile")
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, apperrors.WrapError(err, "failed to parse profile %s", path)
	}
	return &p, nil
}

// Save writes the profile as indented JSON with owner-only permissions.
func (p *Profile) Save(path string) error {
	if path == "" {
		path = DefaultProfilePath()
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return apperrors.WrapError(err, "failed to marshal profile")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return apperrors.WrapError(err, "failed to write profile")
	}
	return nil
}

// IsValid reports whether the profile was produced by this format version on
// hardware matching the current machine.
func (p *Profile) IsValid() bool {
	if p == nil || p.ProfileVersion != CurrentProfileVersion {
		return false
	}
	return p.NumCPU == runtime.NumCPU() &&
		p.GOARCH == runtime.GOARCH &&
		p.WordSize == 32<<(^uint(0)>>63) &&
		p.CPUFeatures == cpuFeatures()
}

// IsStale reports whether the profile is older than maxAge.
func (p *Profile) IsStale(maxAge time.Duration) bool {
	return p == nil || time.Since(p.CalibratedAt) > maxAge
}

// SetEntry records e, replacing any entry with the same Bits. Entries stay
// sorted by Bits.
func (p *Profile) SetEntry(e qsieve.TuneEntry) {
	i, found := slices.BinarySearchFunc(p.Entries, e.Bits, func(x qsieve.TuneEntry, bits int) int {
		return x.Bits - bits
	})
	if found {
		p.Entries[i] = e
		return
	}
	p.Entries = slices.Insert(p.Entries, i, e)
}

// Table returns the built-in table with the profile entries applied.
func (p *Profile) Table() []qsieve.TuneEntry {
	if p == nil {
		return qsieve.DefaultTuneTable()
	}
	return qsieve.MergeTuneTable(p.Entries)
}

func (p *Profile) String() string {
	if p == nil {
		return "<nil profile>"
	}
	return fmt.Sprintf("Profile{CPU: %s [%s], entries: %d, calibrated: %s}",
		p.CPUModel, p.CPUFeatures, len(p.Entries), p.CalibratedAt.Format(time.RFC3339))
}

// LoadTable returns the tuning table to use: the built-in one merged with the
// profile at path when that profile exists and matches this machine.
//
// Parameters:
//   - path: Profile location, empty for DefaultProfilePath.
//
// Returns:
//   - []qsieve.TuneEntry: The table to factor with.
//   - bool: Whether a profile was applied.
//   - error: A read or parse error; a missing file is not an error.
func LoadTable(path string) ([]qsieve.TuneEntry, bool, error) {
	p, err := LoadProfile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return qsieve.DefaultTuneTable(), false, nil
	case err != nil:
		return qsieve.DefaultTuneTable(), false, err
	case !p.IsValid():
		return qsieve.DefaultTuneTable(), false, nil
	}
	return p.Table(), true, nil
}
