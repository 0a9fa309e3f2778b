// Package makeclean runs the build tool's clean target for a directory.
package makeclean

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/alessio/shellescape"
	"github.com/sirupsen/logrus"

	"cmake-clean/internal/config"
)

// Invoker runs the external clean action. The exit code is returned to the
// caller; a launch failure returns -1 and the error.
type Invoker struct {
	Command string
	Args    []string
	Stdout  io.Writer
	Stderr  io.Writer
	Logger  logrus.FieldLogger
}

// New builds an Invoker from the make section of the config
func New(cfg config.MakeCfg, logger logrus.FieldLogger) *Invoker {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Invoker{
		Command: cfg.Command,
		Args:    append([]string(nil), cfg.Args...),
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Logger:  logger,
	}
}

// CommandLine returns argv for cleaning dir
func (i *Invoker) CommandLine(dir string) []string {
	argv := []string{i.Command, "--directory=" + dir}
	return append(argv, i.Args...)
}

// Run executes the clean action in dir and waits for it to exit
func (i *Invoker) Run(ctx context.Context, dir string) (int, error) {
	argv := i.CommandLine(dir)
	i.Logger.WithField("cmd", shellescape.QuoteCommand(argv)).Debug("running clean action")

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = i.Stdout
	cmd.Stderr = i.Stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("run %s: %w", i.Command, err)
}
