package sfnt

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Data is a position-tracked big-endian byte buffer used to decode and
// encode sfnt tables. Reads consume from Pos; writes always append.
//
// Reading past the end yields zero values and records a sticky error that
// callers inspect once through Err after parsing a table.
type Data struct {
	buf []byte
	pos int
	err error
}

// NewData returns a cursor over b positioned at 0.
func NewData(b []byte) *Data {
	return &Data{buf: b}
}

// Pos reports the read position.
func (d *Data) Pos() int { return d.pos }

// Seek moves the read position to off.
func (d *Data) Seek(off int) {
	if off < 0 || off > len(d.buf) {
		d.fail(off, 0)
		return
	}
	d.pos = off
}

// Skip advances the read position by n bytes.
func (d *Data) Skip(n int) { d.Seek(d.pos + n) }

// Len returns the number of bytes held by the buffer.
func (d *Data) Len() int { return len(d.buf) }

// Bytes returns the underlying buffer.
func (d *Data) Bytes() []byte { return d.buf }

// Err returns the first out-of-range access, if any.
func (d *Data) Err() error { return d.err }

func (d *Data) fail(off, n int) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: read of %d bytes at offset %d exceeds %d", ErrMalformed, n, off, len(d.buf))
	}
}

func (d *Data) take(n int) []byte {
	if n < 0 || d.pos+n > len(d.buf) {
		d.fail(d.pos, n)
		d.pos = len(d.buf)
		return nil
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b
}

func (d *Data) ReadUint8() uint8 {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *Data) ReadInt8() int8 { return int8(d.ReadUint8()) }

func (d *Data) ReadUint16() uint16 {
	b := d.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (d *Data) ReadInt16() int16 { return int16(d.ReadUint16()) }

func (d *Data) ReadUint32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (d *Data) ReadInt32() int32 { return int32(d.ReadUint32()) }

// ReadInt64 combines two 32-bit halves into a signed 64-bit value.
func (d *Data) ReadInt64() int64 {
	hi := d.ReadUint32()
	lo := d.ReadUint32()
	return int64(uint64(hi)<<32 | uint64(lo))
}

// ReadFixed reads a 16.16 fixed point number.
func (d *Data) ReadFixed() float64 {
	return float64(d.ReadInt32()) / 65536
}

// ReadLongDateTime reads an sfnt LONGDATETIME (seconds since 1904-01-01 UTC).
func (d *Data) ReadLongDateTime() time.Time {
	return time.Unix(d.ReadInt64()-epochDelta, 0).UTC()
}

// ReadString reads n bytes as an ASCII string.
func (d *Data) ReadString(n int) string {
	return string(d.take(n))
}

// Read returns the next n bytes. The returned slice aliases the buffer.
func (d *Data) Read(n int) []byte {
	return d.take(n)
}

func (d *Data) WriteUint8(v uint8) { d.buf = append(d.buf, v) }

func (d *Data) WriteUint16(v uint16) { d.buf = binary.BigEndian.AppendUint16(d.buf, v) }

func (d *Data) WriteInt16(v int16) { d.WriteUint16(uint16(v)) }

func (d *Data) WriteUint32(v uint32) { d.buf = binary.BigEndian.AppendUint32(d.buf, v) }

func (d *Data) WriteInt32(v int32) { d.WriteUint32(uint32(v)) }

func (d *Data) WriteInt64(v int64) {
	d.WriteUint32(uint32(uint64(v) >> 32))
	d.WriteUint32(uint32(v))
}

func (d *Data) WriteFixed(v float64) { d.WriteInt32(int32(v * 65536)) }

func (d *Data) WriteLongDateTime(t time.Time) {
	d.WriteInt64(t.Unix() + epochDelta)
}

func (d *Data) WriteString(s string) { d.buf = append(d.buf, s...) }

func (d *Data) Write(b []byte) { d.buf = append(d.buf, b...) }

// epochDelta is the number of seconds between 1904-01-01 and 1970-01-01.
const epochDelta = 2082844800
