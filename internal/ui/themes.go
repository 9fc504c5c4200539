// Package ui holds the terminal color themes of the CLI. Colors are named
// after what they mark in factoring output rather than after hues.
package ui

import (
	"sync"

	"github.com/fatih/color"
)

// Theme is a set of ANSI escape codes, one per output role.
type Theme struct {
	Name string
	// Factor marks divisors and prime factors.
	Factor string
	// Input marks the number being factored.
	Input string
	// Stat marks sieve statistics and timings.
	Stat string
	// Warning marks retunes and fallbacks.
	Warning string
	// Error marks failures.
	Error string
	Bold  string
	Reset string
}

var (
	// DarkTheme suits dark terminal backgrounds.
	DarkTheme = Theme{
		Name:    "dark",
		Factor:  "\033[38;5;82m",
		Input:   "\033[38;5;39m",
		Stat:    "\033[38;5;245m",
		Warning: "\033[38;5;220m",
		Error:   "\033[38;5;196m",
		Bold:    "\033[1m",
		Reset:   "\033[0m",
	}

	// LightTheme suits light terminal backgrounds.
	LightTheme = Theme{
		Name:    "light",
		Factor:  "\033[38;5;28m",
		Input:   "\033[38;5;27m",
		Stat:    "\033[38;5;240m",
		Warning: "\033[38;5;130m",
		Error:   "\033[38;5;124m",
		Bold:    "\033[1m",
		Reset:   "\033[0m",
	}

	// NoColorTheme disables all color output.
	NoColorTheme = Theme{Name: "none"}

	currentTheme = DarkTheme
	themeMutex   sync.RWMutex
)

// GetCurrentTheme returns the active theme.
func GetCurrentTheme() Theme {
	themeMutex.RLock()
	defer themeMutex.RUnlock()
	return currentTheme
}

// SetCurrentTheme replaces the active theme. Tests use it to restore state.
func SetCurrentTheme(t Theme) {
	themeMutex.Lock()
	defer themeMutex.Unlock()
	currentTheme = t
}

// SetTheme activates a theme by name: "dark", "light" or "none". Unknown
// names select the dark theme.
func SetTheme(name string) {
	switch name {
	case "light":
		SetCurrentTheme(LightTheme)
	case "none":
		SetCurrentTheme(NoColorTheme)
	default:
		SetCurrentTheme(DarkTheme)
	}
}

// InitTheme picks the theme for this process. Colors are disabled when
// noColor is set or when fatih/color decided the output cannot take them:
// NO_COLOR is set, TERM is "dumb" or stdout is not a terminal.
func InitTheme(noColor bool) {
	if noColor || color.NoColor {
		SetCurrentTheme(NoColorTheme)
		return
	}
	SetCurrentTheme(DarkTheme)
}

// Colorize wraps s in the escape code of role and a reset. With the
// no-color theme it returns s unchanged.
func Colorize(role, s string) string {
	if role == "" {
		return s
	}
	return role + s + GetCurrentTheme().Reset
}

// ErrorColors adapts the active theme to the color provider expected by
// apperrors.HandleFactorError.
type ErrorColors struct{}

// Yellow returns the warning code.
func (ErrorColors) Yellow() string { return GetCurrentTheme().Warning }

// Red returns the error code.
func (ErrorColors) Red() string { return GetCurrentTheme().Error }

// Reset returns the reset code.
func (ErrorColors) Reset() string { return GetCurrentTheme().Reset }
