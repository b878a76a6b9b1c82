// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/glintchain/glintd/chaincfg/chainhash"
)

// RejectCode names why a block or transaction was rejected, echoed in a
// reject message so the sender can distinguish a policy-only rejection
// from a consensus failure.
type RejectCode uint8

const (
	RejectMalformed       RejectCode = 0x01
	RejectInvalid         RejectCode = 0x10
	RejectObsolete        RejectCode = 0x11
	RejectDuplicate       RejectCode = 0x12
	RejectNonstandard     RejectCode = 0x40
	RejectInsufficientFee RejectCode = 0x42
	RejectCheckpoint      RejectCode = 0x43
)

// maxRejectReasonLen bounds the human-readable reason string.
const maxRejectReasonLen = 250

// MsgReject tells a peer their transaction, block, or other request was
// refused, and why.
type MsgReject struct {
	// Cmd is the command of the message being rejected.
	Cmd string
	// Code is the reason code for the rejection.
	Code RejectCode
	// Reason is a human-readable string explaining the rejection.
	Reason string
	// Hash is the object hash, present when Cmd is "block" or "tx".
	Hash chainhash.Hash
}

// GlintDecode decodes r into the receiver. This is part of the Message
// interface implementation.
func (msg *MsgReject) GlintDecode(r io.Reader, pver uint32, enc MessageEncoding) error {
	cmd, err := ReadVarBytes(r, pver, uint32(CommandSize)+1, "reject command")
	if err != nil {
		return err
	}
	msg.Cmd = string(cmd)

	code, err := binarySerializer.Uint8(r)
	if err != nil {
		return err
	}
	msg.Code = RejectCode(code)

	reason, err := ReadVarBytes(r, pver, maxRejectReasonLen, "reject reason")
	if err != nil {
		return err
	}
	msg.Reason = string(reason)

	if msg.Cmd == CmdBlock || msg.Cmd == CmdTx {
		_, err := io.ReadFull(r, msg.Hash[:])
		if err != nil {
			return err
		}
	}

	return nil
}

// GlintEncode encodes the receiver to w. This is part of the Message
// interface implementation.
func (msg *MsgReject) GlintEncode(w io.Writer, pver uint32, enc MessageEncoding) error {
	if err := WriteVarBytes(w, pver, []byte(msg.Cmd)); err != nil {
		return err
	}

	if err := binarySerializer.PutUint8(w, uint8(msg.Code)); err != nil {
		return err
	}

	if err := WriteVarBytes(w, pver, []byte(msg.Reason)); err != nil {
		return err
	}

	if msg.Cmd == CmdBlock || msg.Cmd == CmdTx {
		if _, err := w.Write(msg.Hash[:]); err != nil {
			return err
		}
	}

	return nil
}

// Command returns the protocol command string for the message. This is part
// of the Message interface implementation.
func (msg *MsgReject) Command() string {
	return CmdReject
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver. This is part of the Message interface implementation.
func (msg *MsgReject) MaxPayloadLength(pver uint32) uint32 {
	return uint32(CommandSize) + 1 + 1 + maxRejectReasonLen + 1 + uint32(chainhash.HashSize)
}

// NewMsgReject returns a new reject message.
func NewMsgReject(cmd string, code RejectCode, reason string) *MsgReject {
	return &MsgReject{Cmd: cmd, Code: code, Reason: reason}
}
