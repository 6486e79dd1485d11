package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sheerbytes/filexfer/internal/transfer"
	"github.com/sheerbytes/filexfer/internal/transport"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Accept uploads and answer downloads for files under --root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	info, err := os.Stat(a.cfg.Root)
	if err != nil {
		return fmt.Errorf("root %s: %w", a.cfg.Root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root %s is not a directory", a.cfg.Root)
	}

	ln, err := transport.Listen(ctx, a.cfg.Addr, a.logger)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.Addr, err)
	}
	a.logger.Info("serving", "root", a.cfg.Root, "addr", ln.Addr().String())

	srv := transfer.NewServer(a.cfg.Root, transfer.Options{
		ChunkSize:      a.cfg.ChunkSize,
		Logger:         a.logger,
		SkipSpaceCheck: a.cfg.SkipSpaceCheck,
	})
	err = srv.Serve(ctx, ln)
	a.logger.Info("server stopped")
	return err
}
