package domain

import (
	"encoding/binary"
	"fmt"
)

// encoder writes the fixed little-endian record layout.
type encoder struct {
	buf []byte
}

func (e *encoder) fixed(b []byte) { e.buf = append(e.buf, b...) }

func (e *encoder) u8(v uint8) { e.buf = append(e.buf, v) }

func (e *encoder) u64(v uint64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }

func (e *encoder) i64(v int64) { e.u64(uint64(v)) }

// str writes a u32 length prefix followed by the bytes.
func (e *encoder) str(s string) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(len(s)))
	e.buf = append(e.buf, s...)
}

func (e *encoder) optI64(v *int64) {
	if v == nil {
		e.u8(0)
		return
	}
	e.u8(1)
	e.i64(*v)
}

// decoder reads what encoder wrote. The first failure sticks.
type decoder struct {
	buf []byte
	off int
	err error
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || d.off+n > len(d.buf) {
		d.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrMalformedRecord, n, d.off, len(d.buf))
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) fixed32() (out [32]byte) {
	copy(out[:], d.take(32))
	return out
}

func (d *decoder) u8() uint8 {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *decoder) u64() uint64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (d *decoder) i64() int64 { return int64(d.u64()) }

func (d *decoder) str(max int) string {
	b := d.take(4)
	if b == nil {
		return ""
	}
	n := binary.LittleEndian.Uint32(b)
	if int(n) > max {
		d.err = fmt.Errorf("%w: string of %d bytes exceeds %d", ErrMalformedRecord, n, max)
		return ""
	}
	return string(d.take(int(n)))
}

func (d *decoder) optI64() *int64 {
	switch d.u8() {
	case 0:
		return nil
	case 1:
		v := d.i64()
		return &v
	default:
		if d.err == nil {
			d.err = fmt.Errorf("%w: bad option tag", ErrMalformedRecord)
		}
		return nil
	}
}

func (d *decoder) finish() error {
	if d.err != nil {
		return d.err
	}
	if d.off != len(d.buf) {
		return fmt.Errorf("%w: %d trailing bytes", ErrMalformedRecord, len(d.buf)-d.off)
	}
	return nil
}
