package transfer

import (
	"errors"
	"fmt"
)

// Kind classifies why a transfer failed.
type Kind int

const (
	KindNone Kind = iota
	// KindIO means the connection failed: reset, closed early, short read/write.
	KindIO
	// KindLocalIO means a local filesystem operation failed.
	KindLocalIO
	// KindProtocol means the peer sent something the wire format forbids.
	KindProtocol
	// KindIntegrity means a well-formed transfer arrived with the wrong checksum.
	KindIntegrity
	// KindInvalidRequest means the request was rejected before any I/O.
	KindInvalidRequest
)

// Status codes returned by the public entry points. The values are stable.
const (
	StatusOK             = 0
	StatusIOError        = -1
	StatusLocalIOError   = -2
	StatusProtocolError  = -3
	StatusIntegrityError = -4
	StatusInvalidRequest = -5
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "ok"
	case KindIO:
		return "io error"
	case KindLocalIO:
		return "local io error"
	case KindProtocol:
		return "protocol error"
	case KindIntegrity:
		return "integrity error"
	case KindInvalidRequest:
		return "invalid request"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Status maps the kind onto its status code.
func (k Kind) Status() int {
	switch k {
	case KindNone:
		return StatusOK
	case KindIO:
		return StatusIOError
	case KindLocalIO:
		return StatusLocalIOError
	case KindProtocol:
		return StatusProtocolError
	case KindIntegrity:
		return StatusIntegrityError
	case KindInvalidRequest:
		return StatusInvalidRequest
	default:
		return StatusIOError
	}
}

var (
	// ErrUnknownDirection indicates a header carried a direction byte other than upload/download
	ErrUnknownDirection = errors.New("unknown transfer direction")
	// ErrPathTooLong indicates a path exceeds the maximum encodable length
	ErrPathTooLong = errors.New("path too long")
	// ErrEmptyPath indicates a request or header carried an empty path
	ErrEmptyPath = errors.New("empty path")
	// ErrInvalidPath indicates a remote path escapes the serving root
	ErrInvalidPath = errors.New("invalid path")
	// ErrChunkTooLarge indicates a chunk length above the chunk maximum
	ErrChunkTooLarge = errors.New("chunk too large")
	// ErrEmptyChunk indicates an attempt to send a zero-length data chunk
	ErrEmptyChunk = errors.New("empty data chunk")
	// ErrSizeOverrun indicates the sender delivered more bytes than it declared
	ErrSizeOverrun = errors.New("payload exceeds declared size")
	// ErrTruncated indicates the end marker arrived before the declared size
	ErrTruncated = errors.New("payload shorter than declared size")
	// ErrUnexpectedDirection indicates a response header for the wrong direction
	ErrUnexpectedDirection = errors.New("unexpected direction in response header")
	// ErrPathMismatch indicates a response header for a different path than requested
	ErrPathMismatch = errors.New("response path does not match request")
	// ErrSourceChanged indicates the local source shrank while it was being sent
	ErrSourceChanged = errors.New("source file shorter than its stat size")
	// ErrNotRegularFile indicates an upload source that is not a regular file
	ErrNotRegularFile = errors.New("not a regular file")
	// ErrInsufficientSpace indicates the destination volume cannot hold the declared size
	ErrInsufficientSpace = errors.New("insufficient free space")
	// ErrChecksumMismatch indicates the trailer checksum disagrees with the computed one
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// Error carries the failure kind along with the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the kind of err. Errors that carry no kind are treated as
// connection failures, nil as success.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindIO
}

// StatusOf maps err onto its status code.
func StatusOf(err error) int {
	return KindOf(err).Status()
}

func ioErr(op string, err error) error {
	return &Error{Kind: KindIO, Op: op, Err: err}
}

func localErr(op string, err error) error {
	return &Error{Kind: KindLocalIO, Op: op, Err: err}
}

func protoErr(op string, err error) error {
	return &Error{Kind: KindProtocol, Op: op, Err: err}
}

func integrityErr(op string, err error) error {
	return &Error{Kind: KindIntegrity, Op: op, Err: err}
}

func requestErr(op string, err error) error {
	return &Error{Kind: KindInvalidRequest, Op: op, Err: err}
}
