package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sheerbytes/filexfer/internal/progress"
	"github.com/sheerbytes/filexfer/internal/transport"
	"github.com/sheerbytes/filexfer/pkg/filexfer"
)

func newUploadCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <local-path> <remote-path>",
		Short: "Push a local file to the peer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runClient(cmd.Context(), "upload", args[0], args[1])
		},
	}
}

func newDownloadCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "download <remote-path> <local-path>",
		Short: "Pull a file from the peer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runClient(cmd.Context(), "download", args[1], args[0])
		},
	}
}

func (a *app) runClient(parent context.Context, verb, localPath, remotePath string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := transport.Dial(ctx, a.cfg.Addr, a.logger)
	if err != nil {
		return fmt.Errorf("connect %s: %w", a.cfg.Addr, err)
	}
	defer conn.Close()
	// Interrupts abort blocking reads by closing the connection.
	unwatch := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer unwatch()

	opts := []filexfer.Option{
		filexfer.WithLogger(a.logger),
		filexfer.WithChunkSize(a.cfg.ChunkSize),
	}
	if a.cfg.SkipSpaceCheck {
		opts = append(opts, filexfer.WithoutSpaceCheck())
	}
	meter := progress.NewMeter()
	var bar *progressBar
	if a.cfg.Progress {
		bar = newProgressBar(a.stderr, verb)
		opts = append(opts, filexfer.WithProgress(progress.Tee(meter.Observe, bar.Update)))
	} else {
		opts = append(opts, filexfer.WithProgress(meter.Observe))
	}

	start := time.Now()
	var res filexfer.Result
	if verb == "upload" {
		res = filexfer.UploadResult(ctx, conn, localPath, remotePath, opts...)
	} else {
		res = filexfer.DownloadResult(ctx, conn, remotePath, localPath, opts...)
	}
	bar.Finish(res.OK())

	if !res.OK() {
		color.New(color.FgRed).Fprintf(a.stderr, "%s failed: %s (status %d)\n", verb, res.Kind, res.Status())
		return &statusError{status: res.Status(), err: res.Err}
	}
	stats := meter.Snapshot()
	color.New(color.FgGreen).Fprintf(a.stdout, "%s complete: %s in %s (%s/s)\n",
		verb, humanize.IBytes(res.Bytes), time.Since(start).Round(time.Millisecond),
		humanize.IBytes(uint64(stats.AvgRate)))
	return nil
}
