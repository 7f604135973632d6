// Command grant-portal is the terminal client of the grants backend:
// applicants fill in and submit the application form, reviewers list
// applications and change their status.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"grant-portal/internal/common/errors"
	"grant-portal/internal/common/logger"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g := newGlobals(os.Stdout, newSurveyPrompter(DefaultSurveyIO))
	root := newRootCommand(g)
	root.SetArgs(args)

	cmd, err := root.ExecuteContextC(ctx)
	_ = g.stopMetrics()
	if err == nil {
		return errors.ExitOK
	}

	handler := errors.NewErrorHandler(errorLogger(g))
	msg, code := handler.Handle(cmd.CommandPath(), err)
	fmt.Fprintln(os.Stderr, "Error:", msg)
	return code
}

// errorLogger keeps failure details out of the terminal unless -v is set;
// the user always gets the message.
func errorLogger(g *globals) logger.Logger {
	if g.verbose {
		return logger.NewStructured("debug", "console")
	}
	return logger.NewNoOpLogger()
}
