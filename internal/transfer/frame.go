package transfer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// Direction is the first byte of every header.
type Direction byte

const (
	DirectionUpload   Direction = 0
	DirectionDownload Direction = 1
)

func (d Direction) String() string {
	switch d {
	case DirectionUpload:
		return "upload"
	case DirectionDownload:
		return "download"
	default:
		return fmt.Sprintf("direction(%d)", byte(d))
	}
}

// Valid reports whether d is a direction the wire format defines.
func (d Direction) Valid() bool {
	return d == DirectionUpload || d == DirectionDownload
}

const (
	// Protocol limits
	MaxPathLength = 4096
	MaxChunkSize  = 64 * 1024

	chunkLenSize = 4
	trailerSize  = 8
)

// Header opens every transfer. Size is the sender's declared payload length;
// in a download request it is zero and the peer's response carries the real size.
type Header struct {
	Direction Direction
	Path      string
	Size      uint64
}

// WriteHeader encodes h as direction, u16 path length, path bytes, u64 size.
// Nothing is written when h itself is malformed.
func WriteHeader(w io.Writer, h Header) error {
	if !h.Direction.Valid() {
		return protoErr("write header", ErrUnknownDirection)
	}
	if err := validateWirePath(h.Path); err != nil {
		return protoErr("write header", err)
	}

	buf := make([]byte, 0, 1+2+len(h.Path)+8)
	buf = append(buf, byte(h.Direction))
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(h.Path)))
	buf = append(buf, h.Path...)
	buf = binary.BigEndian.AppendUint64(buf, h.Size)
	return writeFull(w, buf, "header")
}

// ReadHeader decodes a header. A peer that closes the connection before the
// first byte yields an IO-kind error wrapping io.EOF; a close anywhere later
// wraps io.ErrUnexpectedEOF.
func ReadHeader(r io.Reader) (Header, error) {
	var h Header

	var dir [1]byte
	if _, err := io.ReadFull(r, dir[:]); err != nil {
		return h, ioErr("read header direction", err)
	}
	h.Direction = Direction(dir[0])
	if !h.Direction.Valid() {
		return h, protoErr("read header", fmt.Errorf("%w: %d", ErrUnknownDirection, dir[0]))
	}

	pathLen, err := readUint16(r, "header path length")
	if err != nil {
		return h, err
	}
	if pathLen > MaxPathLength {
		return h, protoErr("read header", fmt.Errorf("%w: %d bytes", ErrPathTooLong, pathLen))
	}
	if pathLen == 0 {
		return h, protoErr("read header", ErrEmptyPath)
	}
	pathBuf := make([]byte, pathLen)
	if err := readFull(r, pathBuf, "header path"); err != nil {
		return h, err
	}
	if !utf8.Valid(pathBuf) {
		return h, protoErr("read header", fmt.Errorf("%w: not utf-8", ErrInvalidPath))
	}
	h.Path = string(pathBuf)

	size, err := readUint64(r, "header size")
	if err != nil {
		return h, err
	}
	h.Size = size
	return h, nil
}

// WriteChunk frames one non-empty payload. Zero length is reserved for the
// end marker, see WriteEnd.
func WriteChunk(w io.Writer, payload []byte) error {
	if len(payload) == 0 {
		return protoErr("write chunk", ErrEmptyChunk)
	}
	if len(payload) > MaxChunkSize {
		return protoErr("write chunk", fmt.Errorf("%w: %d bytes", ErrChunkTooLarge, len(payload)))
	}
	var lenBuf [chunkLenSize]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if err := writeFull(w, lenBuf[:], "chunk length"); err != nil {
		return err
	}
	return writeFull(w, payload, "chunk payload")
}

// WriteEnd writes the zero-length end marker.
func WriteEnd(w io.Writer) error {
	var lenBuf [chunkLenSize]byte
	return writeFull(w, lenBuf[:], "end marker")
}

// ReadChunk reads one frame into buf and returns the payload slice. A nil,
// empty result with no error is the end marker. buf must hold MaxChunkSize
// bytes to accept every conforming frame.
func ReadChunk(r io.Reader, buf []byte) ([]byte, error) {
	n, err := readUint32(r, "chunk length")
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	if n > MaxChunkSize || int(n) > len(buf) {
		return nil, protoErr("read chunk", fmt.Errorf("%w: %d bytes", ErrChunkTooLarge, n))
	}
	payload := buf[:n]
	if err := readFull(r, payload, "chunk payload"); err != nil {
		return nil, err
	}
	return payload, nil
}

// WriteTrailer writes the 8-byte payload checksum.
func WriteTrailer(w io.Writer, sum uint64) error {
	var buf [trailerSize]byte
	binary.BigEndian.PutUint64(buf[:], sum)
	return writeFull(w, buf[:], "trailer")
}

// ReadTrailer reads the 8-byte payload checksum.
func ReadTrailer(r io.Reader) (uint64, error) {
	return readUint64(r, "trailer")
}

func validateWirePath(p string) error {
	if p == "" {
		return ErrEmptyPath
	}
	if len(p) > MaxPathLength {
		return fmt.Errorf("%w: %d bytes", ErrPathTooLong, len(p))
	}
	return nil
}

// readFull treats EOF as unexpected: every caller is in the middle of a message.
func readFull(r io.Reader, buf []byte, op string) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return ioErr("read "+op, err)
	}
	return nil
}

func writeFull(w io.Writer, buf []byte, op string) error {
	written := 0
	for written < len(buf) {
		n, err := w.Write(buf[written:])
		if err != nil {
			return ioErr("write "+op, err)
		}
		if n == 0 {
			return ioErr("write "+op, io.ErrShortWrite)
		}
		written += n
	}
	return nil
}

func readUint16(r io.Reader, op string) (uint16, error) {
	var buf [2]byte
	if err := readFull(r, buf[:], op); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func readUint32(r io.Reader, op string) (uint32, error) {
	var buf [4]byte
	if err := readFull(r, buf[:], op); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func readUint64(r io.Reader, op string) (uint64, error) {
	var buf [8]byte
	if err := readFull(r, buf[:], op); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}
