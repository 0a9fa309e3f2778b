package logging

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/writer"
)

// Config selects the level and sinks of the CLI logger
type Config struct {
	// Verbosity is the number of -v flags
	Verbosity int
	Quiet     bool
	JSON      bool
	// File, when set, receives every entry at debug level and above as JSON
	File string

	// Output defaults to os.Stderr
	Output io.Writer
}

// Level maps the verbosity flags to a logrus level. A plain run only
// reports warnings so that normal completion stays silent.
func Level(verbosity int, quiet bool) logrus.Level {
	if quiet {
		return logrus.ErrorLevel
	}
	switch verbosity {
	case 0:
		return logrus.WarnLevel
	case 1:
		return logrus.InfoLevel
	case 2:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}

// New builds the process logger
func New(cfg Config) *logrus.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	console := Level(cfg.Verbosity, cfg.Quiet)
	tty := isTerminal(out)

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(console)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		ForceColors:      tty,
		DisableColors:    !tty,
	})
	if cfg.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	if cfg.File != "" {
		// The file sink keeps debug entries while the console stays at its
		// own level, so console output moves to a level-filtered hook.
		if console < logrus.DebugLevel {
			logger.SetLevel(logrus.DebugLevel)
			logger.SetOutput(io.Discard)
			logger.AddHook(&writer.Hook{Writer: out, LogLevels: levelsUpTo(console)})
		}
		logger.AddHook(lfshook.NewHook(cfg.File, &logrus.JSONFormatter{}))
	}
	return logger
}

func levelsUpTo(limit logrus.Level) []logrus.Level {
	var levels []logrus.Level
	for _, l := range logrus.AllLevels {
		if l <= limit {
			levels = append(levels, l)
		}
	}
	return levels
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
