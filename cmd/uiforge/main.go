package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dusk-indust/uiforge/internal/config"
	"github.com/dusk-indust/uiforge/internal/logging"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// Exit codes.
const (
	ExitSuccess  = 0
	ExitFailed   = 1
	ExitPartial  = 2
	ExitConfig   = 3
	ExitCanceled = 4
	ExitInternal = 5
)

// exitError carries an exit code. A nil err means the command already
// reported the outcome.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func main() {
	root := newRootCmd(os.Stdout, os.Stderr)
	err := root.ExecuteContext(context.Background())
	code := exitCode(err)
	if err != nil {
		var ee *exitError
		if !errors.As(err, &ee) || ee.err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("error:"), err)
		}
	}
	os.Exit(code)
}

// exitCode maps an error returned by a command to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	var cfgErr *orchestrator.ConfigurationError
	if errors.As(err, &cfgErr) {
		return ExitConfig
	}
	if errors.Is(err, context.Canceled) {
		return ExitCanceled
	}
	return ExitInternal
}

// statusExit maps a terminal run status to an exit error, nil on success.
func statusExit(s orchestrator.RunStatus, err error) error {
	switch s {
	case orchestrator.RunSucceeded:
		return err
	case orchestrator.RunPartiallySucceeded:
		return &exitError{code: ExitPartial, err: err}
	case orchestrator.RunFailed:
		return &exitError{code: ExitFailed, err: err}
	case orchestrator.RunCanceled:
		return &exitError{code: ExitCanceled, err: err}
	}
	return &exitError{code: ExitInternal, err: err}
}

// cli holds the global flags and output streams shared by every command.
type cli struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	outputDir  string
	logLevel   string
	logFormat  string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "uiforge",
		Short: "Turn a UI design image into a prototype, API document and full-stack project",
		Long: `uiforge drives a five-stage generation pipeline from a UI design image:
a wireframe description, an HTML prototype, an API document, a Vue frontend
and a SpringBoot backend. Every stage output passes a quality gate and is
retried when rejected. Runs are persisted one directory per run.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&c.configPath, "config", "c", "", "config file (default is ./uiforge.yml)")
	pf.StringVar(&c.outputDir, "output-dir", "", "directory holding run directories")
	pf.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&c.logFormat, "log-format", "", "log format: text or json")

	root.AddCommand(
		c.newRunCmd(),
		c.newStatusCmd(),
		c.newListCmd(),
		c.newWatchCmd(),
		c.newDiagramCmd(),
		c.newExportCmd(),
		c.newAgentsCmd(),
		c.newServeAgentCmd(),
		c.newMCPCmd(),
		c.newInitCmd(),
		c.newVersionCmd(),
	)
	return root
}

// loadConfig loads uiforge.yml with the global flags and overrides applied
// on top. Every failure is a configuration error.
func (c *cli) loadConfig(overrides map[string]any) (*config.Config, error) {
	if overrides == nil {
		overrides = make(map[string]any)
	}
	if c.outputDir != "" {
		overrides["output_dir"] = c.outputDir
	}
	if c.logLevel != "" {
		overrides["log_level"] = c.logLevel
	}
	if c.logFormat != "" {
		overrides["log_format"] = c.logFormat
	}
	cfg, err := config.Load(config.LoadOptions{Path: c.configPath, Overrides: overrides})
	if err != nil {
		return nil, &exitError{code: ExitConfig, err: err}
	}
	return cfg, nil
}

func (c *cli) logger(cfg *config.Config) *slog.Logger {
	return logging.New(c.stderr, cfg.LogLevel, cfg.LogFormat)
}

func (c *cli) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(c.stdout, version)
		},
	}
}
