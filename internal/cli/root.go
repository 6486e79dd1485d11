// Package cli wires the filexfer commands: upload, download and serve.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sheerbytes/filexfer/internal/config"
	"github.com/sheerbytes/filexfer/internal/logging"
)

const appName = "filexfer"

// statusError carries a non-zero transfer status out of a command.
type statusError struct {
	status int
	err    error
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %v", e.status, e.err)
}

func (e *statusError) Unwrap() error {
	return e.err
}

type app struct {
	cfgFile string
	envFile string
	cfg     config.Config
	logger  *slog.Logger
	stdout  io.Writer
	stderr  io.Writer
}

// NewRootCommand builds the command tree writing to the given streams.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   appName,
		Short: "Move one file at a time over TCP, QUIC or WebSocket",
		Long: `filexfer uploads and downloads single files over an ordered byte stream.

Every payload is sent in length-prefixed chunks and checked against an xxHash64
trailer. A download only appears under its destination name after the
checksum matches.

  Serve a directory:  filexfer serve --root ./shared --addr tcp://0.0.0.0:9000
  Upload a file:      filexfer upload ./report.pdf reports/q3.pdf --addr tcp://host:9000
  Download a file:    filexfer download reports/q3.pdf ./q3.pdf --addr tcp://host:9000`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(a.envFile); err != nil {
				return err
			}
			cfg, err := config.Load(cmd.Flags(), a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logging.NewWithWriter(a.stderr, appName, cfg.LogLevel, cfg.LogFormat)
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (yaml, json or toml)")
	pf.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading FILEXFER_* variables")
	config.BindFlags(pf)

	root.AddCommand(
		newUploadCommand(a),
		newDownloadCommand(a),
		newServeCommand(a),
	)
	return root
}

// Execute runs the command line and returns the process exit code: 0 on
// success, the absolute transfer status on a failed transfer, 1 otherwise.
func Execute(args []string) int {
	root := NewRootCommand(os.Stdout, os.Stderr)
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return 0
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
	var se *statusError
	if errors.As(err, &se) {
		return -se.status
	}
	return 1
}
