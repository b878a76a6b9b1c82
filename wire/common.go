// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/glintchain/glintd/chaincfg/chainhash"
)

var littleEndian = binary.LittleEndian

// binaryFreeList is a pool of byte slices sized for reading/writing the
// fixed-width integer fields that dominate wire encoding, avoiding an
// allocation on every field of every message.
type binaryFreeList chan []byte

func (l binaryFreeList) Borrow() []byte {
	var buf []byte
	select {
	case buf = <-l:
	default:
		buf = make([]byte, 8)
	}
	return buf[:8]
}

func (l binaryFreeList) Return(buf []byte) {
	select {
	case l <- buf:
	default:
	}
}

func (l binaryFreeList) Uint8(r io.Reader) (uint8, error) {
	buf := l.Borrow()[:1]
	defer l.Return(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (l binaryFreeList) Uint16(r io.Reader, byteOrder binary.ByteOrder) (uint16, error) {
	buf := l.Borrow()[:2]
	defer l.Return(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return byteOrder.Uint16(buf), nil
}

func (l binaryFreeList) Uint32(r io.Reader, byteOrder binary.ByteOrder) (uint32, error) {
	buf := l.Borrow()[:4]
	defer l.Return(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return byteOrder.Uint32(buf), nil
}

func (l binaryFreeList) Uint64(r io.Reader, byteOrder binary.ByteOrder) (uint64, error) {
	buf := l.Borrow()[:8]
	defer l.Return(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return byteOrder.Uint64(buf), nil
}

func (l binaryFreeList) PutUint8(w io.Writer, val uint8) error {
	buf := l.Borrow()[:1]
	defer l.Return(buf)
	buf[0] = val
	_, err := w.Write(buf)
	return err
}

func (l binaryFreeList) PutUint16(w io.Writer, byteOrder binary.ByteOrder, val uint16) error {
	buf := l.Borrow()[:2]
	defer l.Return(buf)
	byteOrder.PutUint16(buf, val)
	_, err := w.Write(buf)
	return err
}

func (l binaryFreeList) PutUint32(w io.Writer, byteOrder binary.ByteOrder, val uint32) error {
	buf := l.Borrow()[:4]
	defer l.Return(buf)
	byteOrder.PutUint32(buf, val)
	_, err := w.Write(buf)
	return err
}

func (l binaryFreeList) PutUint64(w io.Writer, byteOrder binary.ByteOrder, val uint64) error {
	buf := l.Borrow()[:8]
	defer l.Return(buf)
	byteOrder.PutUint64(buf, val)
	_, err := w.Write(buf)
	return err
}

// binarySerializer is the free list used by all wire encode/decode routines.
var binarySerializer binaryFreeList = make(chan []byte, 32)

// MaxVarIntPayload is the maximum payload size, in bytes, of a compact-size
// variable-length integer (9: a 0xff marker byte plus an 8-byte value).
const MaxVarIntPayload = 9

var errNonCanonicalVarInt = fmt.Errorf("non-canonical compact size encoding")

// ReadVarIntBuf reads a compact-size variable-length integer from r: a
// single byte for values below 0xfd, or a 0xfd/0xfe/0xff marker byte
// followed by a 2/4/8-byte little-endian value. buf must be at least 8
// bytes; pass binarySerializer.Borrow() unless nil is acceptable.
func ReadVarIntBuf(r io.Reader, pver uint32, buf []byte) (uint64, error) {
	if buf == nil {
		buf = binarySerializer.Borrow()
		defer binarySerializer.Return(buf)
	}

	if _, err := io.ReadFull(r, buf[:1]); err != nil {
		return 0, err
	}
	discriminant := buf[0]

	var rv uint64
	switch discriminant {
	case 0xff:
		if _, err := io.ReadFull(r, buf[:8]); err != nil {
			return 0, err
		}
		rv = littleEndian.Uint64(buf)
		if rv < 0x100000000 {
			return 0, errNonCanonicalVarInt
		}
	case 0xfe:
		if _, err := io.ReadFull(r, buf[:4]); err != nil {
			return 0, err
		}
		rv = uint64(littleEndian.Uint32(buf))
		if rv < 0x10000 {
			return 0, errNonCanonicalVarInt
		}
	case 0xfd:
		if _, err := io.ReadFull(r, buf[:2]); err != nil {
			return 0, err
		}
		rv = uint64(littleEndian.Uint16(buf))
		if rv < 0xfd {
			return 0, errNonCanonicalVarInt
		}
	default:
		rv = uint64(discriminant)
	}

	return rv, nil
}

// ReadVarInt is the equivalent of ReadVarIntBuf with a fresh scratch buffer.
func ReadVarInt(r io.Reader, pver uint32) (uint64, error) {
	return ReadVarIntBuf(r, pver, nil)
}

// WriteVarIntBuf writes val to w using the compact-size encoding.
func WriteVarIntBuf(w io.Writer, pver uint32, val uint64, buf []byte) error {
	if buf == nil {
		buf = binarySerializer.Borrow()
		defer binarySerializer.Return(buf)
	}

	if val < 0xfd {
		buf[0] = uint8(val)
		_, err := w.Write(buf[:1])
		return err
	}

	if val <= 0xffff {
		buf[0] = 0xfd
		littleEndian.PutUint16(buf[1:3], uint16(val))
		_, err := w.Write(buf[:3])
		return err
	}

	if val <= 0xffffffff {
		buf[0] = 0xfe
		littleEndian.PutUint32(buf[1:5], uint32(val))
		_, err := w.Write(buf[:5])
		return err
	}

	buf[0] = 0xff
	littleEndian.PutUint64(buf[1:9], val)
	_, err := w.Write(buf[:9])
	return err
}

// WriteVarInt is the equivalent of WriteVarIntBuf with a fresh scratch buffer.
func WriteVarInt(w io.Writer, pver uint32, val uint64) error {
	return WriteVarIntBuf(w, pver, val, nil)
}

// VarIntSerializeSize returns the number of bytes the compact-size encoding
// of val occupies.
func VarIntSerializeSize(val uint64) int {
	switch {
	case val < 0xfd:
		return 1
	case val <= 0xffff:
		return 3
	case val <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

// ReadVarBytes reads a compact-size-prefixed byte string, rejecting payloads
// declaring more than maxAllowed bytes before an allocation is attempted.
func ReadVarBytes(r io.Reader, pver uint32, maxAllowed uint32, fieldName string) ([]byte, error) {
	count, err := ReadVarInt(r, pver)
	if err != nil {
		return nil, err
	}
	if count > uint64(maxAllowed) {
		return nil, fmt.Errorf("%s is larger than the max allowed size "+
			"[count %d, max %d]", fieldName, count, maxAllowed)
	}

	b := make([]byte, count)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// WriteVarBytes writes a compact-size length prefix followed by b.
func WriteVarBytes(w io.Writer, pver uint32, b []byte) error {
	if err := WriteVarInt(w, pver, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// doubleHashRaw computes dsha256 over everything a serialize func writes,
// without the caller needing to buffer the payload itself first.
func doubleHashRaw(serialize func(w io.Writer) error) (chainhash.Hash, error) {
	hasher := newHashWriter()
	if err := serialize(hasher); err != nil {
		return chainhash.Hash{}, err
	}
	return hasher.sum(), nil
}
