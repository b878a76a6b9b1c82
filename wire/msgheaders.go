// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"
)

// MaxBlockHeadersPerMsg bounds the number of headers a single headers
// message may carry, matching the sync manager's per-batch fetch size.
const MaxBlockHeadersPerMsg = 2000

// MsgHeaders delivers block headers in response to a getheaders message,
// the backbone of headers-first initial sync.
type MsgHeaders struct {
	Headers []*BlockHeader
}

// AddBlockHeader adds a header to the message.
func (msg *MsgHeaders) AddBlockHeader(bh *BlockHeader) error {
	if len(msg.Headers)+1 > MaxBlockHeadersPerMsg {
		return messageError("MsgHeaders.AddBlockHeader",
			fmt.Sprintf("too many block headers in message [max %v]", MaxBlockHeadersPerMsg))
	}
	msg.Headers = append(msg.Headers, bh)
	return nil
}

// GlintDecode decodes r into the receiver. This is part of the Message
// interface implementation.
func (msg *MsgHeaders) GlintDecode(r io.Reader, pver uint32, enc MessageEncoding) error {
	buf := binarySerializer.Borrow()
	defer binarySerializer.Return(buf)

	count, err := ReadVarIntBuf(r, pver, buf)
	if err != nil {
		return err
	}
	if count > MaxBlockHeadersPerMsg {
		return messageError("MsgHeaders.GlintDecode",
			fmt.Sprintf("too many block headers for message [count %v, max %v]", count, MaxBlockHeadersPerMsg))
	}

	headers := make([]BlockHeader, count)
	msg.Headers = make([]*BlockHeader, 0, count)
	for i := uint64(0); i < count; i++ {
		bh := &headers[i]
		if err := readBlockHeaderBuf(r, pver, bh, buf); err != nil {
			return err
		}

		txCount, err := ReadVarIntBuf(r, pver, buf)
		if err != nil {
			return err
		}
		if txCount > 0 {
			return messageError("MsgHeaders.GlintDecode",
				fmt.Sprintf("block headers may not contain transactions [count %v]", txCount))
		}
		msg.AddBlockHeader(bh)
	}

	return nil
}

// GlintEncode encodes the receiver to w. This is part of the Message
// interface implementation.
func (msg *MsgHeaders) GlintEncode(w io.Writer, pver uint32, enc MessageEncoding) error {
	count := len(msg.Headers)
	if count > MaxBlockHeadersPerMsg {
		return messageError("MsgHeaders.GlintEncode",
			fmt.Sprintf("too many block headers for message [count %v, max %v]", count, MaxBlockHeadersPerMsg))
	}

	buf := binarySerializer.Borrow()
	defer binarySerializer.Return(buf)

	if err := WriteVarIntBuf(w, pver, uint64(count), buf); err != nil {
		return err
	}

	for _, bh := range msg.Headers {
		if err := writeBlockHeaderBuf(w, pver, bh, buf); err != nil {
			return err
		}

		// A trailing zero tx count is carried for every header, matching
		// the historical Bitcoin wire layout this protocol's headers
		// message reuses.
		if err := WriteVarIntBuf(w, pver, 0, buf); err != nil {
			return err
		}
	}

	return nil
}

// Command returns the protocol command string for the message. This is part
// of the Message interface implementation.
func (msg *MsgHeaders) Command() string {
	return CmdHeaders
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver. This is part of the Message interface implementation.
func (msg *MsgHeaders) MaxPayloadLength(pver uint32) uint32 {
	return MaxVarIntPayload + ((MaxBlockHeaderPayload + 1) * MaxBlockHeadersPerMsg)
}

// NewMsgHeaders returns a new headers message.
func NewMsgHeaders() *MsgHeaders {
	return &MsgHeaders{
		Headers: make([]*BlockHeader, 0, MaxBlockHeadersPerMsg),
	}
}
