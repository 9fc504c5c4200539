// Package app wires the configuration, the factoring driver and the output
// layers into the qsieve command.
package app

import (
	"fmt"
	"io"
	"runtime"
	"slices"

	"github.com/agbru/qsieve/internal/qsieve"
)

// Build metadata, set with -ldflags, for example:
//
//	go build -ldflags="-X github.com/agbru/qsieve/internal/app.Version=v0.3.0 -X github.com/agbru/qsieve/internal/app.Commit=$(git rev-parse --short HEAD)" ./cmd/qsieve
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// versionFlags are recognized anywhere on the command line, before the
// flag set is parsed.
var versionFlags = []string{"--version", "-version", "-V"}

// HasVersionFlag reports whether args contain a version flag.
func HasVersionFlag(args []string) bool {
	return slices.ContainsFunc(args, func(a string) bool {
		return slices.Contains(versionFlags, a)
	})
}

// VersionData is the machine-readable form of the version banner.
type VersionData struct {
	Version        string `json:"version"`
	Commit         string `json:"commit"`
	BuildDate      string `json:"build_date"`
	GoVersion      string `json:"go_version"`
	OS             string `json:"os"`
	Arch           string `json:"arch"`
	ProductBackend string `json:"product_backend"`
}

// GetVersionInfo returns the build and runtime information.
func GetVersionInfo() VersionData {
	return VersionData{
		Version:        Version,
		Commit:         Commit,
		BuildDate:      BuildDate,
		GoVersion:      runtime.Version(),
		OS:             runtime.GOOS,
		Arch:           runtime.GOARCH,
		ProductBackend: qsieve.ProductBackend(),
	}
}

// PrintVersion writes the version banner.
func PrintVersion(out io.Writer) {
	v := GetVersionInfo()
	fmt.Fprintf(out, "qsieve %s\n", v.Version)
	fmt.Fprintf(out, "  Commit:     %s\n", v.Commit)
	fmt.Fprintf(out, "  Built:      %s\n", v.BuildDate)
	fmt.Fprintf(out, "  Go version: %s\n", v.GoVersion)
	fmt.Fprintf(out, "  OS/Arch:    %s/%s\n", v.OS, v.Arch)
	fmt.Fprintf(out, "  Products:   %s\n", v.ProductBackend)
}
