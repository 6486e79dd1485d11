package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"unicode/utf8"
)

// Request names one transfer. It is not modified once a session owns it.
type Request struct {
	Direction  Direction
	LocalPath  string
	RemotePath string
}

// Validate rejects requests that cannot be framed or opened.
func (r Request) Validate() error {
	if !r.Direction.Valid() {
		return requestErr("validate request", ErrUnknownDirection)
	}
	if r.LocalPath == "" {
		return requestErr("validate request", fmt.Errorf("local: %w", ErrEmptyPath))
	}
	if err := validateWirePath(r.RemotePath); err != nil {
		return requestErr("validate request", fmt.Errorf("remote: %w", err))
	}
	if !utf8.ValidString(r.RemotePath) {
		return requestErr("validate request", fmt.Errorf("remote: %w: not utf-8", ErrInvalidPath))
	}
	return nil
}

// State is a step of the session state machine.
type State int

const (
	StateInit State = iota
	StateHeaderExchange
	StateStreaming
	StateVerify
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateHeaderExchange:
		return "header_exchange"
	case StateStreaming:
		return "streaming"
	case StateVerify:
		return "verify"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Result is the outcome of one session.
type Result struct {
	Kind  Kind
	Err   error
	Bytes uint64
}

// OK reports whether the transfer succeeded.
func (r Result) OK() bool {
	return r.Kind == KindNone
}

// Status maps the result onto the public status code.
func (r Result) Status() int {
	return r.Kind.Status()
}

var errSessionReused = errors.New("session already run")

// Session drives one direction of one transfer over a borrowed connection.
// The connection is never closed by the session. A session runs once.
type Session struct {
	req    Request
	conn   Conn
	engine *Engine
	opts   Options
	logger *slog.Logger

	state    State
	source   *os.File
	staged   *stagedFile
	verifier *Verifier
	declared uint64
	bytes    uint64
}

// NewSession prepares a session; nothing is opened until Run.
func NewSession(conn Conn, req Request, opts Options) *Session {
	opts = NormalizeOptions(opts)
	return &Session{
		req:    req,
		conn:   conn,
		engine: NewEngine(opts),
		opts:   opts,
		logger: opts.Logger.With(
			slog.String("direction", req.Direction.String()),
			slog.String("local", req.LocalPath),
			slog.String("remote", req.RemotePath),
		),
		state:    StateInit,
		verifier: NewVerifier(),
	}
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// Run drives the session to Done or Failed. Local resources are released
// before it returns; on failure a download's temp file is removed and the
// destination path is left untouched.
func (s *Session) Run(ctx context.Context) Result {
	if s.state != StateInit {
		return Result{Kind: KindInvalidRequest, Err: requestErr("run", errSessionReused)}
	}

	var err error
	switch s.req.Direction {
	case DirectionUpload:
		err = s.runUpload(ctx)
	case DirectionDownload:
		err = s.runDownload(ctx)
	default:
		err = s.req.Validate()
	}
	s.release()

	if err != nil {
		kind := KindOf(err)
		s.logger.Warn("transfer failed",
			"state", s.state.String(),
			"kind", kind.String(),
			"bytes", s.bytes,
			"error", err,
		)
		s.transition(StateFailed)
		return Result{Kind: kind, Err: err, Bytes: s.bytes}
	}

	s.transition(StateDone)
	s.logger.Info("transfer complete", "bytes", s.bytes)
	return Result{Bytes: s.bytes}
}

func (s *Session) runUpload(ctx context.Context) error {
	if err := s.req.Validate(); err != nil {
		return err
	}
	f, err := os.Open(s.req.LocalPath)
	if err != nil {
		return localErr("open source", err)
	}
	s.source = f
	info, err := f.Stat()
	if err != nil {
		return localErr("stat source", err)
	}
	if !info.Mode().IsRegular() {
		return localErr("stat source", fmt.Errorf("%w: %s", ErrNotRegularFile, s.req.LocalPath))
	}
	s.declared = uint64(info.Size())

	s.transition(StateHeaderExchange)
	if err := WriteHeader(s.conn, Header{
		Direction: DirectionUpload,
		Path:      s.req.RemotePath,
		Size:      s.declared,
	}); err != nil {
		return err
	}

	s.transition(StateStreaming)
	n, err := s.engine.StreamOut(ctx, s.conn, s.source, s.declared, s.verifier)
	s.bytes = n
	if err != nil {
		return err
	}

	s.transition(StateVerify)
	return WriteTrailer(s.conn, s.verifier.Sum64())
}

func (s *Session) runDownload(ctx context.Context) error {
	if err := s.req.Validate(); err != nil {
		return err
	}
	staged, err := stage(s.req.LocalPath)
	if err != nil {
		return err
	}
	s.staged = staged

	s.transition(StateHeaderExchange)
	if err := WriteHeader(s.conn, Header{
		Direction: DirectionDownload,
		Path:      s.req.RemotePath,
	}); err != nil {
		return err
	}
	h, err := ReadHeader(s.conn)
	if err != nil {
		return err
	}
	if h.Direction != DirectionDownload {
		return protoErr("read response header", fmt.Errorf("%w: %s", ErrUnexpectedDirection, h.Direction))
	}
	if h.Path != s.req.RemotePath {
		return protoErr("read response header", fmt.Errorf("%w: got %q", ErrPathMismatch, h.Path))
	}
	s.declared = h.Size
	if !s.opts.SkipSpaceCheck {
		if err := checkSpace(filepath.Dir(s.req.LocalPath), s.declared); err != nil {
			return err
		}
	}

	s.transition(StateStreaming)
	n, err := s.engine.StreamIn(ctx, s.conn, s.staged, s.declared, s.verifier)
	s.bytes = n
	if err != nil {
		return err
	}

	s.transition(StateVerify)
	if err := verifyTrailer(s.conn, s.verifier); err != nil {
		return err
	}
	return s.staged.Commit()
}

func (s *Session) release() {
	if s.source != nil {
		_ = s.source.Close()
		s.source = nil
	}
	if s.staged != nil {
		s.staged.Discard()
		s.staged = nil
	}
}

func (s *Session) transition(next State) {
	s.logger.Debug("session state", "from", s.state.String(), "to", next.String())
	s.state = next
}

// verifyTrailer reads the producer's checksum and compares it with ours.
func verifyTrailer(r io.Reader, v *Verifier) error {
	want, err := ReadTrailer(r)
	if err != nil {
		return err
	}
	if got := v.Sum64(); got != want {
		return integrityErr("verify trailer", fmt.Errorf("%w: computed %016x, trailer %016x", ErrChecksumMismatch, got, want))
	}
	return nil
}
