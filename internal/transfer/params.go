package transfer

import (
	"io"
	"log/slog"

	"github.com/sheerbytes/filexfer/internal/bufpool"
)

// ProgressFn is called after every chunk with the running byte count and the
// declared total.
type ProgressFn func(done, total uint64)

// Options tune a session or a server. The zero value is usable.
type Options struct {
	// ChunkSize is the payload size of outgoing chunks (default and cap: MaxChunkSize).
	ChunkSize int
	Logger    *slog.Logger
	Progress  ProgressFn
	// Pool supplies chunk buffers; its buffers must be MaxChunkSize bytes.
	Pool *bufpool.Pool
	// SkipSpaceCheck disables the free-space precheck on receive.
	SkipSpaceCheck bool
}

// NormalizeOptions applies defaults and clamps the chunk size.
func NormalizeOptions(opts Options) Options {
	out := opts
	if out.ChunkSize <= 0 || out.ChunkSize > MaxChunkSize {
		out.ChunkSize = MaxChunkSize
	}
	if out.Logger == nil {
		out.Logger = discardLogger
	}
	if out.Pool == nil || out.Pool.BufSize() < MaxChunkSize {
		out.Pool = chunkBuffers
	}
	return out
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
