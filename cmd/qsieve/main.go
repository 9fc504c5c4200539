// Command qsieve factors integers with the self-initializing quadratic
// sieve.
package main

import (
	"context"
	"os"

	"github.com/agbru/qsieve/internal/app"
	apperrors "github.com/agbru/qsieve/internal/errors"
)

func main() {
	if app.HasVersionFlag(os.Args[1:]) {
		app.PrintVersion(os.Stdout)
		return
	}

	application, err := app.New(os.Args, os.Stderr)
	if err != nil {
		if app.IsHelpError(err) {
			return
		}
		os.Exit(apperrors.ExitErrorConfig)
	}
	os.Exit(application.Run(context.Background(), os.Stdout))
}
