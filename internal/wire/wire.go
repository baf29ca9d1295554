// Package wire implements the little-endian fixed-width binary encoding
// used by the persisted CSF/MultisetCSF layout (spec.md §6).
package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/valyala/bytebufferpool"
)

// Writer appends little-endian fields to a pooled buffer, avoiding an
// allocation per Save call for the common case of many small artifacts.
type Writer struct {
	buf *bytebufferpool.ByteBuffer
}

// NewWriter borrows a buffer from the pool. Callers that serialize
// frequently should call Release once the returned bytes are no longer
// needed, to return the buffer for reuse.
func NewWriter() *Writer {
	buf := bytebufferpool.Get()
	buf.Reset()
	return &Writer{buf: buf}
}

// Release returns the writer's buffer to the pool. Bytes() must not be
// used after Release.
func (w *Writer) Release() { bytebufferpool.Put(w.buf) }

func (w *Writer) WriteU8(v uint8) error {
	return w.buf.WriteByte(v)
}

func (w *Writer) WriteU32(v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.buf.Write(buf[:])
	return err
}

func (w *Writer) WriteU64(v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.buf.Write(buf[:])
	return err
}

func (w *Writer) WriteRaw(b []byte) error {
	_, err := w.buf.Write(b)
	return err
}

// Bytes returns the accumulated buffer. The returned slice aliases the
// writer's pooled buffer and must be copied before calling Release.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// WriteTo implements io.WriterTo.
func (w *Writer) WriteTo(dst io.Writer) (int64, error) {
	n, err := dst.Write(w.buf.Bytes())
	return int64(n), err
}

// Reader consumes little-endian fields from a fixed buffer.
type Reader struct {
	buf []byte
	pos int
}

func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

func (r *Reader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return fmt.Errorf("wire: short buffer: need %d bytes at offset %d, have %d", n, r.pos, len(r.buf))
	}
	return nil
}

func (r *Reader) ReadU8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *Reader) ReadU32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *Reader) ReadU64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *Reader) ReadRaw(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	out := r.buf[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

// Remaining returns the unread tail of the buffer.
func (r *Reader) Remaining() []byte { return r.buf[r.pos:] }
