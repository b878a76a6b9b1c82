// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"
	"net"
	"time"
)

// maxNetAddressPayload is the number of bytes a NetAddress occupies on the
// wire: timestamp(4) + services(8) + IP(16) + port(2).
const maxNetAddressPayload = 4 + 8 + 16 + 2

// NetAddress identifies a peer on the network: its services, IP (v4
// addresses are mapped into the 16-byte v6 form), and port.
type NetAddress struct {
	Timestamp time.Time
	Services  ServiceFlag
	IP        net.IP
	Port      uint16
}

func readNetAddress(r io.Reader, pver uint32, na *NetAddress, hasTimestamp bool) error {
	var ip [16]byte

	if hasTimestamp {
		ts, err := binarySerializer.Uint32(r, littleEndian)
		if err != nil {
			return err
		}
		na.Timestamp = time.Unix(int64(ts), 0)
	}

	services, err := binarySerializer.Uint64(r, littleEndian)
	if err != nil {
		return err
	}
	na.Services = ServiceFlag(services)

	if _, err := io.ReadFull(r, ip[:]); err != nil {
		return err
	}
	na.IP = net.IP(ip[:]).To16()

	port, err := binarySerializer.Uint16(r, bigEndianPort{})
	if err != nil {
		return err
	}
	na.Port = port

	return nil
}

func writeNetAddress(w io.Writer, pver uint32, na *NetAddress, hasTimestamp bool) error {
	if hasTimestamp {
		if err := binarySerializer.PutUint32(w, littleEndian, uint32(na.Timestamp.Unix())); err != nil {
			return err
		}
	}

	if err := binarySerializer.PutUint64(w, littleEndian, uint64(na.Services)); err != nil {
		return err
	}

	var ip [16]byte
	if na.IP != nil {
		copy(ip[:], na.IP.To16())
	}
	if _, err := w.Write(ip[:]); err != nil {
		return err
	}

	return binarySerializer.PutUint16(w, bigEndianPort{}, na.Port)
}

// bigEndianPort implements binary.ByteOrder solely so the port field, which
// the protocol always carries big-endian regardless of the rest of the
// frame, can reuse the same free-list helpers as every little-endian field.
type bigEndianPort struct{}

func (bigEndianPort) Uint16(b []byte) uint16  { return uint16(b[0])<<8 | uint16(b[1]) }
func (bigEndianPort) PutUint16(b []byte, v uint16) {
	b[0] = byte(v >> 8)
	b[1] = byte(v)
}
func (bigEndianPort) Uint32(b []byte) uint32      { panic("unused") }
func (bigEndianPort) PutUint32(b []byte, v uint32) { panic("unused") }
func (bigEndianPort) Uint64(b []byte) uint64      { panic("unused") }
func (bigEndianPort) PutUint64(b []byte, v uint64) { panic("unused") }
func (bigEndianPort) String() string              { return "bigEndianPort" }
