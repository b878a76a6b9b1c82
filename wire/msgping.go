// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"
)

// MsgPing carries a nonce a peer echoes back in a pong, used to confirm
// liveness and measure round-trip timing.
type MsgPing struct {
	Nonce uint64
}

// GlintDecode decodes r into the receiver. This is part of the Message
// interface implementation.
func (msg *MsgPing) GlintDecode(r io.Reader, pver uint32, enc MessageEncoding) error {
	nonce, err := binarySerializer.Uint64(r, littleEndian)
	if err != nil {
		return err
	}
	msg.Nonce = nonce
	return nil
}

// GlintEncode encodes the receiver to w. This is part of the Message
// interface implementation.
func (msg *MsgPing) GlintEncode(w io.Writer, pver uint32, enc MessageEncoding) error {
	return binarySerializer.PutUint64(w, littleEndian, msg.Nonce)
}

// Command returns the protocol command string for the message. This is part
// of the Message interface implementation.
func (msg *MsgPing) Command() string {
	return CmdPing
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver. This is part of the Message interface implementation.
func (msg *MsgPing) MaxPayloadLength(pver uint32) uint32 {
	return 8
}

// NewMsgPing returns a new ping message carrying nonce.
func NewMsgPing(nonce uint64) *MsgPing {
	return &MsgPing{Nonce: nonce}
}
