package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agbru/qsieve/internal/ui"
	"github.com/agbru/qsieve/pkg/models"
)

// OutputConfig holds configuration for result output.
type OutputConfig struct {
	// OutputFile is the path to save the results (empty for no file output).
	OutputFile string
	// Quiet prints one line per input and nothing else.
	Quiet bool
	// JSON prints the result documents as a JSON array.
	JSON bool
}

// FormatQuietResult formats a result as "n: f1 f2 ...", or "n: error" on
// failure.
func FormatQuietResult(res models.FactorResult) string {
	if res.Error != "" {
		return fmt.Sprintf("%s: error: %s", res.N, res.Error)
	}
	if len(res.Factors) == 0 {
		return res.N + ":"
	}
	return res.N + ": " + strings.Join(res.Factors, " ")
}

// DisplayQuietResults writes one FormatQuietResult line per result.
func DisplayQuietResults(out io.Writer, results []models.FactorResult) {
	for _, res := range results {
		fmt.Fprintln(out, FormatQuietResult(res))
	}
}

// WriteJSON encodes the results as an indented JSON array.
func WriteJSON(out io.Writer, results []models.FactorResult) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return nil
}

// WriteResultsToFile writes the results to path, creating its directory
// when needed. A ".json" path gets the JSON document, any other path a
// commented header followed by quiet-format lines.
//
// Parameters:
//   - results: The result documents.
//   - path: The destination file.
//
// Returns:
//   - error: An error if the file cannot be written.
func WriteResultsToFile(results []models.FactorResult, path string) error {
	if path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return WriteJSON(file, results)
	}
	fmt.Fprintf(file, "# qsieve factorization results\n")
	fmt.Fprintf(file, "# Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(file, "# Inputs: %d\n\n", len(results))
	DisplayQuietResults(file, results)
	return nil
}

// DisplayResults handles the quiet, JSON and file output modes. The
// standard table is printed by the orchestration layer.
//
// Parameters:
//   - out: The output writer.
//   - results: The result documents.
//   - config: Output configuration.
//
// Returns:
//   - error: An error if encoding or file output fails.
func DisplayResults(out io.Writer, results []models.FactorResult, config OutputConfig) error {
	switch {
	case config.JSON:
		if err := WriteJSON(out, results); err != nil {
			return err
		}
	case config.Quiet:
		DisplayQuietResults(out, results)
	}

	if config.OutputFile == "" {
		return nil
	}
	if err := WriteResultsToFile(results, config.OutputFile); err != nil {
		return err
	}
	if !config.Quiet && !config.JSON {
		theme := ui.GetCurrentTheme()
		fmt.Fprintf(out, "\nResults saved to: %s\n", ui.Colorize(theme.Input, config.OutputFile))
	}
	return nil
}
