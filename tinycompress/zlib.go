// Package tinycompress writes zlib streams made of stored (uncompressed)
// deflate blocks. Any zlib reader accepts them and the writer needs no
// tables, which keeps it small enough for the firmware image.
package tinycompress

import (
	"errors"
	"hash/adler32"
	"io"
)

// maxStored is the largest payload of one stored deflate block
const maxStored = 0xFFFF

// zlib header: deflate, 32K window, no preset dictionary, FCHECK valid
var zlibHeader = [2]byte{0x78, 0x01}

// ErrClosed is returned by Write after Close
var ErrClosed = errors.New("tinycompress: write after close")

// Store returns data wrapped as a complete zlib stream
func Store(data []byte) []byte {
	sum := adler32.Checksum(data)
	blocks := (len(data) + maxStored - 1) / maxStored
	if blocks == 0 {
		blocks = 1
	}
	out := make([]byte, 0, len(zlibHeader)+len(data)+blocks*5+4)
	out = append(out, zlibHeader[:]...)
	for {
		n := min(len(data), maxStored)
		out = appendStored(out, data[:n], n == len(data))
		data = data[n:]
		if len(data) == 0 {
			break
		}
	}
	return appendAdler(out, sum)
}

func appendStored(out, chunk []byte, final bool) []byte {
	var hdr byte
	if final {
		hdr = 0x01
	}
	n := uint16(len(chunk))
	out = append(out, hdr, byte(n), byte(n>>8), byte(^n), byte(^n>>8))
	return append(out, chunk...)
}

func appendAdler(out []byte, sum uint32) []byte {
	return append(out, byte(sum>>24), byte(sum>>16), byte(sum>>8), byte(sum))
}

// Writer buffers everything written and emits the stream on Close
type Writer struct {
	w      io.Writer
	buf    []byte
	closed bool
}

// NewWriter returns a Writer that flushes a zlib stream to w on Close
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (z *Writer) Write(p []byte) (int, error) {
	if z.closed {
		return 0, ErrClosed
	}
	z.buf = append(z.buf, p...)
	return len(p), nil
}

// Close writes the stream. It is safe to call more than once.
func (z *Writer) Close() error {
	if z.closed {
		return nil
	}
	z.closed = true
	_, err := z.w.Write(Store(z.buf))
	return err
}
