package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sheerbytes/filexfer/internal/progress"
)

// Server is the remote side of a transfer: it answers download requests and
// accepts uploads for files under Root.
type Server struct {
	root   string
	opts   Options
	logger *slog.Logger
}

// NewServer serves files under root.
func NewServer(root string, opts Options) *Server {
	opts = NormalizeOptions(opts)
	return &Server{
		root:   root,
		opts:   opts,
		logger: opts.Logger,
	}
}

// Serve accepts connections until ctx is done or the listener fails, serving
// each on its own goroutine. Cancelling ctx also closes every open
// connection; Serve waits for their goroutines before returning.
func (s *Server) Serve(ctx context.Context, ln Listener) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	for {
		conn, err := ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer conn.Close()
			// Closing the connection unblocks a read waiting on an idle peer.
			stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
			defer stop()
			_ = s.ServeConn(ctx, conn)
		}()
	}
}

// ServeConn runs transfers on conn one after another until the peer closes
// the connection between transfers. Any failed transfer ends the
// connection, since the stream position can no longer be trusted.
func (s *Server) ServeConn(ctx context.Context, conn Conn) error {
	logger := s.logger.With(slog.String("conn", uuid.NewString()))
	logger.Debug("connection opened")

	for {
		if err := ctx.Err(); err != nil {
			return ioErr("serve", err)
		}

		h, err := ReadHeader(conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Debug("connection closed by peer")
				return nil
			}
			logger.Warn("bad request header", "kind", KindOf(err).String(), "error", err)
			return err
		}

		start := time.Now()
		tlog := logger.With(
			slog.String("transfer", uuid.NewString()),
			slog.String("direction", h.Direction.String()),
			slog.String("path", h.Path),
		)
		meter := progress.NewMeter()
		opts := s.opts
		opts.Progress = progress.Tee(meter.Observe, s.opts.Progress)
		eng := NewEngine(opts)

		var n uint64
		switch h.Direction {
		case DirectionUpload:
			n, err = s.receive(ctx, conn, eng, h)
		case DirectionDownload:
			n, err = s.send(ctx, conn, eng, h)
		}
		if err != nil {
			tlog.Warn("transfer failed", "kind", KindOf(err).String(), "bytes", n, "error", err)
			return err
		}
		tlog.Info("transfer complete",
			"bytes", n,
			"elapsed", time.Since(start),
			"avg_bps", int64(meter.Snapshot().AvgRate),
		)
	}
}

func (s *Server) receive(ctx context.Context, conn Conn, eng *Engine, h Header) (uint64, error) {
	final, err := s.resolve(h.Path)
	if err != nil {
		return 0, err
	}
	dir := filepath.Dir(final)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, localErr("create parent directory", err)
	}
	if !s.opts.SkipSpaceCheck {
		if err := checkSpace(dir, h.Size); err != nil {
			return 0, err
		}
	}

	staged, err := stage(final)
	if err != nil {
		return 0, err
	}
	defer staged.Discard()

	v := NewVerifier()
	n, err := eng.StreamIn(ctx, conn, staged, h.Size, v)
	if err != nil {
		return n, err
	}
	if err := verifyTrailer(conn, v); err != nil {
		return n, err
	}
	return n, staged.Commit()
}

func (s *Server) send(ctx context.Context, conn Conn, eng *Engine, h Header) (uint64, error) {
	path, err := s.resolve(h.Path)
	if err != nil {
		return 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, localErr("open source", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return 0, localErr("stat source", err)
	}
	if !info.Mode().IsRegular() {
		return 0, localErr("stat source", fmt.Errorf("%w: %s", ErrNotRegularFile, h.Path))
	}
	size := uint64(info.Size())

	if err := WriteHeader(conn, Header{Direction: DirectionDownload, Path: h.Path, Size: size}); err != nil {
		return 0, err
	}
	v := NewVerifier()
	n, err := eng.StreamOut(ctx, conn, f, size, v)
	if err != nil {
		return n, err
	}
	return n, WriteTrailer(conn, v.Sum64())
}

// resolve maps a wire path onto a file under root. Paths are slash
// separated and relative; absolute paths and ".." elements are rejected.
func (s *Server) resolve(p string) (string, error) {
	if err := validateRelPath(p); err != nil {
		return "", protoErr("resolve path", fmt.Errorf("%w: %q", err, p))
	}
	return filepath.Join(s.root, filepath.FromSlash(p)), nil
}

func validateRelPath(p string) error {
	if p == "" {
		return ErrEmptyPath
	}
	if strings.ContainsRune(p, '\\') || strings.ContainsRune(p, 0) {
		return ErrInvalidPath
	}
	if strings.HasPrefix(p, "/") || filepath.IsAbs(p) || filepath.VolumeName(p) != "" {
		return ErrInvalidPath
	}
	for _, elem := range strings.Split(p, "/") {
		if elem == ".." {
			return ErrInvalidPath
		}
	}
	if clean := filepath.ToSlash(filepath.Clean(filepath.FromSlash(p))); clean == "." {
		return ErrInvalidPath
	}
	return nil
}
