// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package holder

import (
	"encoding/binary"
	"fmt"
)

// Writer builds a compact binary holder payload: varint integers and
// length-prefixed strings and byte slices.
type Writer struct {
	data []byte
}

// WriteVarint appends a zig-zag varint.
func (w *Writer) WriteVarint(value int64) {
	w.data = binary.AppendVarint(w.data, value)
}

// WriteUvarint appends an unsigned varint.
func (w *Writer) WriteUvarint(value uint64) {
	w.data = binary.AppendUvarint(w.data, value)
}

// WriteBool appends a single 0 or 1 byte.
func (w *Writer) WriteBool(value bool) {
	if value {
		w.data = append(w.data, 1)
	} else {
		w.data = append(w.data, 0)
	}
}

// WriteString appends a length-prefixed UTF-8 string.
func (w *Writer) WriteString(value string) {
	w.WriteUvarint(uint64(len(value)))
	w.data = append(w.data, value...)
}

// WriteBytes appends a length-prefixed byte slice.
func (w *Writer) WriteBytes(value []byte) {
	w.WriteUvarint(uint64(len(value)))
	w.data = append(w.data, value...)
}

// Bytes returns the encoded payload.
func (w *Writer) Bytes() []byte { return w.data }

// Reader decodes a payload produced by Writer. Errors are sticky: the
// first failure is kept, every later read returns a zero value, and
// Finish reports it. This lets a decode function read all fields and
// check once.
//
//	reader := holder.NewReader(data)
//	name := reader.ReadString()
//	tier := reader.ReadVarint()
//	if err := reader.Finish(); err != nil {
//	    return Machine{}, err
//	}
type Reader struct {
	data   []byte
	offset int
	err    error
}

// NewReader creates a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: at offset %d: %s", ErrCorruptSyncData, r.offset, fmt.Sprintf(format, args...))
	}
}

// ReadVarint reads a zig-zag varint.
func (r *Reader) ReadVarint() int64 {
	if r.err != nil {
		return 0
	}
	value, n := binary.Varint(r.data[r.offset:])
	if n <= 0 {
		r.fail("truncated or overlong varint")
		return 0
	}
	r.offset += n
	return value
}

// ReadUvarint reads an unsigned varint.
func (r *Reader) ReadUvarint() uint64 {
	if r.err != nil {
		return 0
	}
	value, n := binary.Uvarint(r.data[r.offset:])
	if n <= 0 {
		r.fail("truncated or overlong uvarint")
		return 0
	}
	r.offset += n
	return value
}

// ReadBool reads a byte that must be 0 or 1.
func (r *Reader) ReadBool() bool {
	if r.err != nil {
		return false
	}
	if r.offset >= len(r.data) {
		r.fail("truncated bool")
		return false
	}
	value := r.data[r.offset]
	if value > 1 {
		r.fail("invalid bool byte 0x%02x", value)
		return false
	}
	r.offset++
	return value == 1
}

// ReadString reads a length-prefixed string.
func (r *Reader) ReadString() string {
	return string(r.readPrefixed("string"))
}

// ReadBytes reads a length-prefixed byte slice. The result is a copy.
func (r *Reader) ReadBytes() []byte {
	raw := r.readPrefixed("bytes")
	if raw == nil {
		return nil
	}
	return append([]byte(nil), raw...)
}

func (r *Reader) readPrefixed(what string) []byte {
	length := r.ReadUvarint()
	if r.err != nil {
		return nil
	}
	remaining := uint64(len(r.data) - r.offset)
	if length > remaining {
		r.fail("%s length %d exceeds remaining %d bytes", what, length, remaining)
		return nil
	}
	raw := r.data[r.offset : r.offset+int(length)]
	r.offset += int(length)
	return raw
}

// Err returns the first read failure, if any.
func (r *Reader) Err() error { return r.err }

// Finish returns the first read failure, or an error if bytes remain
// unread.
func (r *Reader) Finish() error {
	if r.err != nil {
		return r.err
	}
	if r.offset != len(r.data) {
		return fmt.Errorf("%w: %d trailing bytes", ErrCorruptSyncData, len(r.data)-r.offset)
	}
	return nil
}
