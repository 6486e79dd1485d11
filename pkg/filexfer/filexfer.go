// Package filexfer moves one file over an established byte stream.
//
// Download and Upload return a status code:
//
//	 0  success
//	-1  connection failure (StatusIOError)
//	-2  local filesystem failure (StatusLocalIOError)
//	-3  peer violated the wire format (StatusProtocolError)
//	-4  checksum mismatch (StatusIntegrityError)
//	-5  request rejected before any I/O (StatusInvalidRequest)
//
// Each call runs one transfer to completion on the calling goroutine. Calls
// on distinct connections may run concurrently; a connection must not be
// shared by two calls at once. The connection is never closed by these
// functions; closing it from another goroutine aborts the call in flight with
// StatusIOError.
package filexfer

import (
	"context"
	"log/slog"

	"github.com/sheerbytes/filexfer/internal/transfer"
)

const (
	StatusOK             = transfer.StatusOK
	StatusIOError        = transfer.StatusIOError
	StatusLocalIOError   = transfer.StatusLocalIOError
	StatusProtocolError  = transfer.StatusProtocolError
	StatusIntegrityError = transfer.StatusIntegrityError
	StatusInvalidRequest = transfer.StatusInvalidRequest
)

// Conn is the connection a transfer borrows.
type Conn = transfer.Conn

// Result carries the status kind, the underlying error and the payload bytes moved.
type Result = transfer.Result

// Option configures a transfer.
type Option func(*transfer.Options)

// WithLogger sends session diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *transfer.Options) { o.Logger = logger }
}

// WithProgress reports the running byte count after every chunk.
func WithProgress(fn func(done, total uint64)) Option {
	return func(o *transfer.Options) { o.Progress = fn }
}

// WithChunkSize sets the payload size of outgoing chunks, capped at 64 KiB.
func WithChunkSize(n int) Option {
	return func(o *transfer.Options) { o.ChunkSize = n }
}

// WithoutSpaceCheck skips the free-space precheck before a download.
func WithoutSpaceCheck() Option {
	return func(o *transfer.Options) { o.SkipSpaceCheck = true }
}

// Download pulls remotePath from the peer into localPath. localPath only
// changes once the whole file has arrived and its checksum verified.
func Download(ctx context.Context, conn Conn, remotePath, localPath string, opts ...Option) int {
	return DownloadResult(ctx, conn, remotePath, localPath, opts...).Status()
}

// Upload pushes localPath to the peer as remotePath.
func Upload(ctx context.Context, conn Conn, localPath, remotePath string, opts ...Option) int {
	return UploadResult(ctx, conn, localPath, remotePath, opts...).Status()
}

// DownloadResult is Download with the full result.
func DownloadResult(ctx context.Context, conn Conn, remotePath, localPath string, opts ...Option) Result {
	return run(ctx, conn, transfer.Request{
		Direction:  transfer.DirectionDownload,
		LocalPath:  localPath,
		RemotePath: remotePath,
	}, opts)
}

// UploadResult is Upload with the full result.
func UploadResult(ctx context.Context, conn Conn, localPath, remotePath string, opts ...Option) Result {
	return run(ctx, conn, transfer.Request{
		Direction:  transfer.DirectionUpload,
		LocalPath:  localPath,
		RemotePath: remotePath,
	}, opts)
}

func run(ctx context.Context, conn Conn, req transfer.Request, opts []Option) Result {
	var o transfer.Options
	for _, opt := range opts {
		opt(&o)
	}
	return transfer.NewSession(conn, req, o).Run(ctx)
}

// Client binds a connection and options for a sequence of transfers. Calls
// on one Client must not overlap.
type Client struct {
	conn Conn
	opts []Option
}

// NewClient wraps conn.
func NewClient(conn Conn, opts ...Option) *Client {
	return &Client{conn: conn, opts: opts}
}

// Download is the package-level Download on the client's connection.
func (c *Client) Download(ctx context.Context, remotePath, localPath string) int {
	return DownloadResult(ctx, c.conn, remotePath, localPath, c.opts...).Status()
}

// Upload is the package-level Upload on the client's connection.
func (c *Client) Upload(ctx context.Context, localPath, remotePath string) int {
	return UploadResult(ctx, c.conn, localPath, remotePath, c.opts...).Status()
}
