// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"

	"github.com/glintchain/glintd/chaincfg/chainhash"
)

// MaxBlockLocatorsPerMsg bounds the number of locator hashes a getheaders
// message may carry.
const MaxBlockLocatorsPerMsg = 500

// MsgGetHeaders requests a chain of headers starting after the first
// locator hash the recipient recognizes, continuing toward HashStop (the
// zero hash requests as many as the per-message limit allows).
type MsgGetHeaders struct {
	ProtocolVersion    uint32
	BlockLocatorHashes []*chainhash.Hash
	HashStop           chainhash.Hash
}

// AddBlockLocatorHash adds a new block locator hash to the message.
func (msg *MsgGetHeaders) AddBlockLocatorHash(hash *chainhash.Hash) error {
	if len(msg.BlockLocatorHashes)+1 > MaxBlockLocatorsPerMsg {
		return messageError("MsgGetHeaders.AddBlockLocatorHash",
			fmt.Sprintf("too many block locator hashes for message [max %v]", MaxBlockLocatorsPerMsg))
	}
	msg.BlockLocatorHashes = append(msg.BlockLocatorHashes, hash)
	return nil
}

// GlintDecode decodes r into the receiver. This is part of the Message
// interface implementation.
func (msg *MsgGetHeaders) GlintDecode(r io.Reader, pver uint32, enc MessageEncoding) error {
	buf := binarySerializer.Borrow()
	defer binarySerializer.Return(buf)

	if _, err := io.ReadFull(r, buf[:4]); err != nil {
		return err
	}
	msg.ProtocolVersion = littleEndian.Uint32(buf[:4])

	count, err := ReadVarIntBuf(r, pver, buf)
	if err != nil {
		return err
	}
	if count > MaxBlockLocatorsPerMsg {
		return messageError("MsgGetHeaders.GlintDecode",
			fmt.Sprintf("too many block locator hashes for message [count %v, max %v]", count, MaxBlockLocatorsPerMsg))
	}

	locatorHashes := make([]chainhash.Hash, count)
	msg.BlockLocatorHashes = make([]*chainhash.Hash, 0, count)
	for i := uint64(0); i < count; i++ {
		hash := &locatorHashes[i]
		if _, err := io.ReadFull(r, hash[:]); err != nil {
			return err
		}
		msg.AddBlockLocatorHash(hash)
	}

	_, err = io.ReadFull(r, msg.HashStop[:])
	return err
}

// GlintEncode encodes the receiver to w. This is part of the Message
// interface implementation.
func (msg *MsgGetHeaders) GlintEncode(w io.Writer, pver uint32, enc MessageEncoding) error {
	count := len(msg.BlockLocatorHashes)
	if count > MaxBlockLocatorsPerMsg {
		return messageError("MsgGetHeaders.GlintEncode",
			fmt.Sprintf("too many block locator hashes for message [count %v, max %v]", count, MaxBlockLocatorsPerMsg))
	}

	buf := binarySerializer.Borrow()
	defer binarySerializer.Return(buf)

	littleEndian.PutUint32(buf[:4], msg.ProtocolVersion)
	if _, err := w.Write(buf[:4]); err != nil {
		return err
	}

	if err := WriteVarIntBuf(w, pver, uint64(count), buf); err != nil {
		return err
	}

	for _, hash := range msg.BlockLocatorHashes {
		if _, err := w.Write(hash[:]); err != nil {
			return err
		}
	}

	_, err := w.Write(msg.HashStop[:])
	return err
}

// Command returns the protocol command string for the message. This is part
// of the Message interface implementation.
func (msg *MsgGetHeaders) Command() string {
	return CmdGetHeaders
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver. This is part of the Message interface implementation.
func (msg *MsgGetHeaders) MaxPayloadLength(pver uint32) uint32 {
	return 4 + MaxVarIntPayload + (MaxBlockLocatorsPerMsg * chainhash.HashSize) + chainhash.HashSize
}

// NewMsgGetHeaders returns a new getheaders message.
func NewMsgGetHeaders() *MsgGetHeaders {
	return &MsgGetHeaders{
		ProtocolVersion:    ProtocolVersion,
		BlockLocatorHashes: make([]*chainhash.Hash, 0, MaxBlockLocatorsPerMsg),
	}
}
