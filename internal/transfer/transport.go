package transfer

import (
	"context"
	"io"
)

// Conn is the byte stream a transfer runs over: ordered, reliable, and
// exclusively owned by one session or server loop at a time. Read may return
// fewer bytes than asked; the framer loops until a message is complete.
// Sessions borrow a Conn and never close it.
type Conn interface {
	io.Reader
	io.Writer
}

// Listener yields connections for a Server.
// It represents an already-bound endpoint; Close unblocks a pending Accept.
type Listener interface {
	Accept(ctx context.Context) (io.ReadWriteCloser, error)
	Close() error
}
