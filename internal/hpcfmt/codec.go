package hpcfmt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	ErrBadMagic     = errors.New("hpcfmt: bad magic")
	ErrBadTag       = errors.New("hpcfmt: bad section tag")
	ErrStringLength = errors.New("hpcfmt: string too long")
)

// MaxStringLen bounds strings read from a profile.
const MaxStringLen = 1 << 20

// Encoder writes little-endian fixed-width fields. The first write error
// sticks: later writes are skipped and Err reports it.
type Encoder struct {
	w   io.Writer
	buf [8]byte
	err error
	n   int64
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (e *Encoder) write(b []byte) {
	if e.err != nil {
		return
	}
	n, err := e.w.Write(b)
	e.n += int64(n)
	e.err = err
}

func (e *Encoder) Uint8(v uint8) {
	e.buf[0] = v
	e.write(e.buf[:1])
}

func (e *Encoder) Uint16(v uint16) {
	binary.LittleEndian.PutUint16(e.buf[:2], v)
	e.write(e.buf[:2])
}

func (e *Encoder) Uint32(v uint32) {
	binary.LittleEndian.PutUint32(e.buf[:4], v)
	e.write(e.buf[:4])
}

func (e *Encoder) Int32(v int32) {
	e.Uint32(uint32(v))
}

func (e *Encoder) Uint64(v uint64) {
	binary.LittleEndian.PutUint64(e.buf[:8], v)
	e.write(e.buf[:8])
}

func (e *Encoder) Bytes(b []byte) {
	e.write(b)
}

// Text writes a 4-byte length followed by the bytes of s.
func (e *Encoder) Text(s string) {
	e.Uint32(uint32(len(s)))
	e.write([]byte(s))
}

// Err returns the first write error.
func (e *Encoder) Err() error {
	return e.err
}

// Written returns the number of bytes written so far.
func (e *Encoder) Written() int64 {
	return e.n
}

// Decoder is the reading dual of Encoder, with the same sticky error.
// A short read reports io.ErrUnexpectedEOF.
type Decoder struct {
	r   io.Reader
	buf [8]byte
	err error
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

func (d *Decoder) read(b []byte) bool {
	if d.err != nil {
		return false
	}
	_, err := io.ReadFull(d.r, b)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	d.err = err
	return err == nil
}

func (d *Decoder) Uint8() uint8 {
	if !d.read(d.buf[:1]) {
		return 0
	}
	return d.buf[0]
}

func (d *Decoder) Uint16() uint16 {
	if !d.read(d.buf[:2]) {
		return 0
	}
	return binary.LittleEndian.Uint16(d.buf[:2])
}

func (d *Decoder) Uint32() uint32 {
	if !d.read(d.buf[:4]) {
		return 0
	}
	return binary.LittleEndian.Uint32(d.buf[:4])
}

func (d *Decoder) Int32() int32 {
	return int32(d.Uint32())
}

func (d *Decoder) Uint64() uint64 {
	if !d.read(d.buf[:8]) {
		return 0
	}
	return binary.LittleEndian.Uint64(d.buf[:8])
}

func (d *Decoder) Bytes(n int) []byte {
	b := make([]byte, n)
	if !d.read(b) {
		return nil
	}
	return b
}

func (d *Decoder) Text() string {
	n := d.Uint32()
	if d.err != nil {
		return ""
	}
	if n > MaxStringLen {
		d.err = fmt.Errorf("%w: %d bytes", ErrStringLength, n)
		return ""
	}
	return string(d.Bytes(int(n)))
}

// Err returns the first read error.
func (d *Decoder) Err() error {
	return d.err
}

// Fail records err unless an earlier error is already recorded.
func (d *Decoder) Fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

// SectionError names the section that failed to decode.
type SectionError struct {
	Section string
	Err     error
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("hpcfmt: reading %s: %v", e.Section, e.Err)
}

func (e *SectionError) Unwrap() error {
	return e.Err
}

func sectionErr(section string, err error) error {
	if err == nil {
		return nil
	}
	return &SectionError{Section: section, Err: err}
}
