package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sheerbytes/filexfer/internal/bufpool"
)

// Engine moves payload bytes between local storage and the connection in
// bounded chunks. It holds one pooled buffer per call, so memory use does not
// depend on file size.
type Engine struct {
	chunkSize int
	pool      *bufpool.Pool
	progress  ProgressFn
}

// NewEngine builds an engine from normalized options.
func NewEngine(opts Options) *Engine {
	opts = NormalizeOptions(opts)
	return &Engine{
		chunkSize: opts.ChunkSize,
		pool:      opts.Pool,
		progress:  opts.Progress,
	}
}

// StreamOut sends exactly size bytes from src as chunk frames followed by the
// end marker, feeding each chunk to v. It returns the payload bytes written.
func (e *Engine) StreamOut(ctx context.Context, w io.Writer, src io.Reader, size uint64, v *Verifier) (uint64, error) {
	buf := e.pool.Get()
	defer e.pool.Put(buf)

	var sent uint64
	for sent < size {
		select {
		case <-ctx.Done():
			return sent, ioErr("stream out", ctx.Err())
		default:
		}

		want := uint64(e.chunkSize)
		if remaining := size - sent; remaining < want {
			want = remaining
		}
		chunk := buf[:want]
		if _, err := io.ReadFull(src, chunk); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return sent, localErr("read source", fmt.Errorf("%w: sent %d of %d", ErrSourceChanged, sent, size))
			}
			return sent, localErr("read source", err)
		}

		v.Update(chunk)
		if err := WriteChunk(w, chunk); err != nil {
			return sent, err
		}
		sent += want
		if e.progress != nil {
			e.progress(sent, size)
		}
	}

	if err := WriteEnd(w); err != nil {
		return sent, err
	}
	return sent, nil
}

// StreamIn reads chunk frames until the end marker, writing each payload to
// dst and feeding it to v. A chunk that would exceed expected is rejected
// before any of it reaches dst; an end marker short of expected is a
// truncated transfer.
func (e *Engine) StreamIn(ctx context.Context, r io.Reader, dst io.Writer, expected uint64, v *Verifier) (uint64, error) {
	buf := e.pool.Get()
	defer e.pool.Put(buf)

	var received uint64
	for {
		select {
		case <-ctx.Done():
			return received, ioErr("stream in", ctx.Err())
		default:
		}

		payload, err := ReadChunk(r, buf)
		if err != nil {
			return received, err
		}
		if payload == nil {
			if received < expected {
				return received, protoErr("stream in", fmt.Errorf("%w: got %d of %d", ErrTruncated, received, expected))
			}
			return received, nil
		}

		n := uint64(len(payload))
		if n > expected-received {
			return received, protoErr("stream in", fmt.Errorf("%w: %d bytes past %d", ErrSizeOverrun, received+n-expected, expected))
		}

		v.Update(payload)
		if _, err := dst.Write(payload); err != nil {
			return received, localErr("write destination", err)
		}
		received += n
		if e.progress != nil {
			e.progress(received, expected)
		}
	}
}
