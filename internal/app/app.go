package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/agbru/qsieve/internal/calibration"
	"github.com/agbru/qsieve/internal/cli"
	"github.com/agbru/qsieve/internal/config"
	apperrors "github.com/agbru/qsieve/internal/errors"
	"github.com/agbru/qsieve/internal/logging"
	"github.com/agbru/qsieve/internal/orchestration"
	"github.com/agbru/qsieve/internal/qsieve"
	"github.com/agbru/qsieve/internal/server"
	"github.com/agbru/qsieve/internal/service"
	"github.com/agbru/qsieve/internal/ui"
	"github.com/agbru/qsieve/pkg/models"
)

// Application is one invocation of the qsieve command.
type Application struct {
	// Config holds the parsed application configuration.
	Config config.AppConfig
	// Table is the tuning table, calibrated when a matching profile exists.
	Table []qsieve.TuneEntry
	// Logger receives the structured engine and server logs.
	Logger logging.Logger
	// Splitter overrides the sieve; nil runs the real engine.
	Splitter orchestration.Splitter
	// ErrWriter is the writer for error output (typically os.Stderr).
	ErrWriter io.Writer
}

// New parses the command line and loads the tuning profile.
//
// Parameters:
//   - args: The command-line arguments, program name first (os.Args).
//   - errWriter: The writer for usage, errors and logs.
//
// Returns:
//   - *Application: A new application instance.
//   - error: A flag or validation error; see IsHelpError.
func New(args []string, errWriter io.Writer) (*Application, error) {
	programName := "qsieve"
	var cmdArgs []string
	if len(args) > 0 {
		programName = args[0]
		cmdArgs = args[1:]
	}

	cfg, err := config.ParseConfig(programName, cmdArgs, errWriter)
	if err != nil {
		return nil, err
	}
	logger := logging.NewLogger(errWriter, "qsieve", cfg.LogLevel)

	table, applied, err := calibration.LoadTable(cfg.CalibrationProfile)
	if err != nil {
		logger.Warn("ignoring calibration profile", logging.Err(err))
	} else if applied {
		logger.Debug("calibration profile applied", logging.String("path", cfg.CalibrationProfile))
	}

	return &Application{
		Config:    cfg,
		Table:     table,
		Logger:    logger,
		ErrWriter: errWriter,
	}, nil
}

// Run dispatches to completion, server, calibration or factoring mode.
//
// Parameters:
//   - ctx: The parent context.
//   - out: The writer for standard output.
//
// Returns:
//   - int: The process exit code.
func (a *Application) Run(ctx context.Context, out io.Writer) int {
	if a.Config.Completion != "" {
		return a.runCompletion(out)
	}
	ui.InitTheme(a.Config.NoColor)

	switch {
	case a.Config.ServerMode:
		return a.runServer()
	case a.Config.Calibrate:
		return a.runCalibration(ctx, out)
	default:
		return a.runFactor(ctx, out)
	}
}

func (a *Application) runCompletion(out io.Writer) int {
	if err := cli.GenerateCompletion(out, a.Config.Completion); err != nil {
		fmt.Fprintf(a.ErrWriter, "Error generating completion: %v\n", err)
		return apperrors.ExitErrorConfig
	}
	return apperrors.ExitSuccess
}

// serverProgressStep is the progress change between two debug log lines of
// a server request.
const serverProgressStep = 0.25

func (a *Application) runServer() int {
	var observers []qsieve.ProgressObserver
	if z, ok := a.Logger.(interface{ Zerolog() zerolog.Logger }); ok {
		observers = append(observers, qsieve.NewLoggingObserver(z.Zerolog(), serverProgressStep))
	}
	svc := service.NewFactorService(a.factorizer(), a.Config.MaxBits, observers...)
	srv := server.NewServer(svc, a.Config, server.WithLogger(a.Logger))
	if err := srv.Start(); err != nil {
		fmt.Fprintf(a.ErrWriter, "Server error: %v\n", err)
		return apperrors.ExitErrorGeneric
	}
	return apperrors.ExitSuccess
}

func (a *Application) runCalibration(ctx context.Context, out io.Writer) int {
	ctx, cancel := SetupLifecycle(ctx, a.Config.Timeout)
	defer cancel()
	return calibration.RunCalibration(ctx, a.Config, out, a.Logger, calibration.Options{
		ProfilePath: a.Config.CalibrationProfile,
		Save:        true,
		Splitter:    a.Splitter,
	})
}

// runFactor factors the inputs concurrently and reports them as a summary
// table, as JSON or as quiet lines.
func (a *Application) runFactor(ctx context.Context, out io.Writer) int {
	ctx, cancel := SetupLifecycle(ctx, a.Config.Timeout)
	defer cancel()

	inputs, err := a.Config.ParseInputs()
	if err != nil {
		fmt.Fprintf(a.ErrWriter, "Configuration error: %v\n", err)
		return apperrors.ExitErrorConfig
	}

	machine := a.Config.JSONOutput || a.Config.Quiet
	progressOut := out
	if machine {
		progressOut = io.Discard
	} else {
		cli.PrintExecutionConfig(a.Config, inputs, a.Table, out)
	}

	results := orchestration.ExecuteFactorizations(ctx, a.factorizer(), inputs, progressOut)

	exitCode := orchestration.ExitCode(results)
	if !machine {
		exitCode = orchestration.AnalyzeResults(results, a.Config, out)
	}

	docs := make([]models.FactorResult, len(results))
	for i, res := range results {
		docs[i] = res.Model()
	}
	outputCfg := cli.OutputConfig{
		OutputFile: a.Config.OutputFile,
		Quiet:      a.Config.Quiet,
		JSON:       a.Config.JSONOutput,
	}
	if err := cli.DisplayResults(out, docs, outputCfg); err != nil {
		fmt.Fprintf(a.ErrWriter, "Error writing results: %v\n", err)
		return apperrors.ExitErrorGeneric
	}
	return exitCode
}

func (a *Application) factorizer() *orchestration.Factorizer {
	f := orchestration.NewFactorizer(a.Config, a.Table, a.Logger)
	if a.Splitter != nil {
		f.Splitter = a.Splitter
	}
	return f
}

// IsHelpError reports whether err comes from -h or --help, which should exit
// with success.
func IsHelpError(err error) bool {
	return errors.Is(err, flag.ErrHelp)
}
