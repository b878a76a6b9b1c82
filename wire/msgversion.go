// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"
	"time"
)

// maxUserAgentLen bounds the user-agent string carried in a version
// message, stopping a peer from forcing an unbounded allocation.
const maxUserAgentLen = 256

// MsgVersion is the first message a connecting peer sends, identifying its
// protocol version, services, and chain height so both sides can negotiate
// the session and detect a self-connection via Nonce.
type MsgVersion struct {
	ProtocolVersion uint32
	Services        ServiceFlag
	Timestamp       time.Time
	AddrYou         NetAddress
	AddrMe          NetAddress
	Nonce           uint64
	UserAgent       string
	LastBlock       int32
}

// GlintDecode decodes r into the receiver. This is part of the Message
// interface implementation.
func (msg *MsgVersion) GlintDecode(r io.Reader, pver uint32, enc MessageEncoding) error {
	buf := binarySerializer.Borrow()
	defer binarySerializer.Return(buf)

	if _, err := io.ReadFull(r, buf[:4]); err != nil {
		return err
	}
	msg.ProtocolVersion = littleEndian.Uint32(buf[:4])

	services, err := binarySerializer.Uint64(r, littleEndian)
	if err != nil {
		return err
	}
	msg.Services = ServiceFlag(services)

	ts, err := binarySerializer.Uint64(r, littleEndian)
	if err != nil {
		return err
	}
	msg.Timestamp = time.Unix(int64(ts), 0)

	if err := readNetAddress(r, pver, &msg.AddrYou, false); err != nil {
		return err
	}
	if err := readNetAddress(r, pver, &msg.AddrMe, false); err != nil {
		return err
	}

	nonce, err := binarySerializer.Uint64(r, littleEndian)
	if err != nil {
		return err
	}
	msg.Nonce = nonce

	userAgent, err := ReadVarBytes(r, pver, maxUserAgentLen, "user agent")
	if err != nil {
		return err
	}
	msg.UserAgent = string(userAgent)

	lastBlock, err := binarySerializer.Uint32(r, littleEndian)
	if err != nil {
		return err
	}
	msg.LastBlock = int32(lastBlock)

	return nil
}

// GlintEncode encodes the receiver to w. This is part of the Message
// interface implementation.
func (msg *MsgVersion) GlintEncode(w io.Writer, pver uint32, enc MessageEncoding) error {
	if err := binarySerializer.PutUint32(w, littleEndian, msg.ProtocolVersion); err != nil {
		return err
	}
	if err := binarySerializer.PutUint64(w, littleEndian, uint64(msg.Services)); err != nil {
		return err
	}
	if err := binarySerializer.PutUint64(w, littleEndian, uint64(msg.Timestamp.Unix())); err != nil {
		return err
	}
	if err := writeNetAddress(w, pver, &msg.AddrYou, false); err != nil {
		return err
	}
	if err := writeNetAddress(w, pver, &msg.AddrMe, false); err != nil {
		return err
	}
	if err := binarySerializer.PutUint64(w, littleEndian, msg.Nonce); err != nil {
		return err
	}
	if err := WriteVarBytes(w, pver, []byte(msg.UserAgent)); err != nil {
		return err
	}
	return binarySerializer.PutUint32(w, littleEndian, uint32(msg.LastBlock))
}

// Command returns the protocol command string for the message. This is part
// of the Message interface implementation.
func (msg *MsgVersion) Command() string {
	return CmdVersion
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver. This is part of the Message interface implementation.
func (msg *MsgVersion) MaxPayloadLength(pver uint32) uint32 {
	return 4 + 8 + 8 + (2 * maxNetAddressPayload) + 8 + MaxVarIntPayload + maxUserAgentLen + 4
}

// NewMsgVersion returns a new version message announcing lastBlock as the
// sender's chain height, identified by nonce for loopback detection.
func NewMsgVersion(me, you *NetAddress, nonce uint64, lastBlock int32) *MsgVersion {
	return &MsgVersion{
		ProtocolVersion: ProtocolVersion,
		Services:        0,
		Timestamp:       time.Unix(time.Now().Unix(), 0),
		AddrYou:         *you,
		AddrMe:          *me,
		Nonce:           nonce,
		UserAgent:       "",
		LastBlock:       lastBlock,
	}
}

// AddUserAgent appends name/version (and optional comments) to UserAgent in
// the conventional "/name:version(comment1; comment2)/" BIP0014 form.
func (msg *MsgVersion) AddUserAgent(name, version string, comments ...string) {
	newUA := "/" + name + ":" + version
	if len(comments) != 0 {
		newUA += "(" + joinComments(comments) + ")"
	}
	newUA += "/"
	msg.UserAgent = msg.UserAgent + newUA
}

func joinComments(comments []string) string {
	out := ""
	for i, c := range comments {
		if i > 0 {
			out += "; "
		}
		out += c
	}
	return out
}
