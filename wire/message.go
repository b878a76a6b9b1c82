// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
)

// MessageEncoding selects which encoding variant an implementation of
// Message uses. The core protocol has exactly one; the type exists so
// future encodings (e.g. a compact-block variant) slot in without changing
// every Message method's signature.
type MessageEncoding uint32

// BaseEncoding is the only encoding the core protocol defines.
const BaseEncoding MessageEncoding = 0

// Message command strings, sent verbatim (NUL-padded to CommandSize) in the
// frame header.
const (
	CmdVersion    = "version"
	CmdVerAck     = "verack"
	CmdPing       = "ping"
	CmdPong       = "pong"
	CmdInv        = "inv"
	CmdGetData    = "getdata"
	CmdGetHeaders = "getheaders"
	CmdHeaders    = "headers"
	CmdBlock      = "block"
	CmdTx         = "tx"
	CmdNotFound   = "notfound"
	CmdReject     = "reject"
)

// CommandSize is the fixed length, in bytes, of a command field.
const CommandSize = 12

// MessageHeaderSize is the number of bytes in a message header: magic(4) +
// command(12) + length(4) + checksum(4).
const MessageHeaderSize = 4 + CommandSize + 4 + 4

// MaxMessagePayload bounds the length field of any frame this node will
// read, independent of any message-specific limit, to stop a peer from
// claiming an unbounded payload and exhausting memory. It comfortably
// exceeds MaxBlockSize so full blocks still fit.
const MaxMessagePayload = 4 * 1024 * 1024

// Message is the interface every wire protocol message implements.
type Message interface {
	GlintEncode(w io.Writer, pver uint32, enc MessageEncoding) error
	GlintDecode(r io.Reader, pver uint32, enc MessageEncoding) error
	Command() string
	MaxPayloadLength(pver uint32) uint32
}

// makeEmptyMessage returns a freshly allocated Message for the given
// command string, or an error if the command is unrecognized.
func makeEmptyMessage(command string) (Message, error) {
	switch command {
	case CmdVersion:
		return &MsgVersion{}, nil
	case CmdVerAck:
		return &MsgVerAck{}, nil
	case CmdPing:
		return &MsgPing{}, nil
	case CmdPong:
		return &MsgPong{}, nil
	case CmdInv:
		return &MsgInv{}, nil
	case CmdGetData:
		return &MsgGetData{}, nil
	case CmdGetHeaders:
		return &MsgGetHeaders{}, nil
	case CmdHeaders:
		return &MsgHeaders{}, nil
	case CmdBlock:
		return &MsgBlock{}, nil
	case CmdTx:
		return &MsgTx{}, nil
	case CmdNotFound:
		return &MsgNotFound{}, nil
	case CmdReject:
		return &MsgReject{}, nil
	default:
		return nil, fmt.Errorf("unhandled command [%s]", command)
	}
}

// messageHeader is the decoded form of a frame's fixed-size preamble.
type messageHeader struct {
	magic    GlintNet
	command  string
	length   uint32
	checksum [4]byte
}

func commandToBytes(command string) ([CommandSize]byte, error) {
	var buf [CommandSize]byte
	if len(command) > CommandSize {
		return buf, messageError("commandToBytes",
			fmt.Sprintf("command %q is longer than %d", command, CommandSize))
	}
	copy(buf[:], command)
	return buf, nil
}

func readMessageHeader(r io.Reader) (int, *messageHeader, error) {
	var headerBytes [MessageHeaderSize]byte
	n, err := io.ReadFull(r, headerBytes[:])
	if err != nil {
		return n, nil, err
	}

	hdr := &messageHeader{}
	hdr.magic = GlintNet(littleEndian.Uint32(headerBytes[0:4]))

	var command [CommandSize]byte
	copy(command[:], headerBytes[4:4+CommandSize])
	hdr.command = stripNulPadding(command[:])

	hdr.length = littleEndian.Uint32(headerBytes[16:20])
	copy(hdr.checksum[:], headerBytes[20:24])

	return n, hdr, nil
}

func stripNulPadding(b []byte) string {
	i := bytes.IndexByte(b, 0)
	if i == -1 {
		return string(b)
	}
	return string(b[:i])
}

// WriteMessageN writes a full frame for msg to w, returning the number of
// bytes written. The frame is magic ‖ command ‖ length ‖ checksum(payload)
// ‖ payload.
func WriteMessageN(w io.Writer, msg Message, pver uint32, net GlintNet) (int, error) {
	totalBytes := 0

	cmd := msg.Command()
	cmdBytes, err := commandToBytes(cmd)
	if err != nil {
		return 0, err
	}

	var payloadBuf bytes.Buffer
	if err := msg.GlintEncode(&payloadBuf, pver, BaseEncoding); err != nil {
		return 0, err
	}
	payload := payloadBuf.Bytes()
	lenp := len(payload)

	mpl := msg.MaxPayloadLength(pver)
	if uint32(lenp) > mpl {
		return 0, messageError("WriteMessageN",
			fmt.Sprintf("message payload for command [%s] is too large [%d > %d]",
				cmd, lenp, mpl))
	}

	var hdrBuf bytes.Buffer
	if err := binaryWrite(&hdrBuf, uint32(net)); err != nil {
		return 0, err
	}
	if _, err := hdrBuf.Write(cmdBytes[:]); err != nil {
		return 0, err
	}
	if err := binaryWrite(&hdrBuf, uint32(lenp)); err != nil {
		return 0, err
	}

	sum := dsha256Checksum(payload)
	if _, err := hdrBuf.Write(sum[:]); err != nil {
		return 0, err
	}

	n, err := w.Write(hdrBuf.Bytes())
	totalBytes += n
	if err != nil {
		return totalBytes, err
	}

	n, err = w.Write(payload)
	totalBytes += n
	return totalBytes, err
}

// WriteMessage is the equivalent of calling WriteMessageN and discarding the
// returned byte count.
func WriteMessage(w io.Writer, msg Message, pver uint32, net GlintNet) error {
	_, err := WriteMessageN(w, msg, pver, net)
	return err
}

// ReadMessageN reads a single framed message from r, returning the number
// of bytes read, the decoded Message, and the raw payload bytes.
func ReadMessageN(r io.Reader, pver uint32, net GlintNet) (int, Message, []byte, error) {
	n, hdr, err := readMessageHeader(r)
	if err != nil {
		return n, nil, nil, err
	}
	totalBytes := n

	if hdr.magic != net {
		return totalBytes, nil, nil, messageError("ReadMessageN",
			fmt.Sprintf("unexpected network magic %v; want %v", hdr.magic, net))
	}

	if !isValidCommand(hdr.command) {
		return totalBytes, nil, nil, messageError("ReadMessageN",
			fmt.Sprintf("invalid command %q", hdr.command))
	}

	if hdr.length > MaxMessagePayload {
		return totalBytes, nil, nil, messageError("ReadMessageN",
			fmt.Sprintf("declared payload length %d exceeds max %d", hdr.length, MaxMessagePayload))
	}

	msg, err := makeEmptyMessage(hdr.command)
	if err != nil {
		return totalBytes, nil, nil, err
	}

	mpl := msg.MaxPayloadLength(pver)
	if hdr.length > mpl {
		return totalBytes, nil, nil, messageError("ReadMessageN",
			fmt.Sprintf("payload length %d for command [%s] exceeds max %d",
				hdr.length, hdr.command, mpl))
	}

	payload := make([]byte, hdr.length)
	pn, err := io.ReadFull(r, payload)
	totalBytes += pn
	if err != nil {
		return totalBytes, nil, nil, err
	}

	checksum := dsha256Checksum(payload)
	if checksum != hdr.checksum {
		return totalBytes, nil, nil, messageError("ReadMessageN",
			fmt.Sprintf("payload checksum failed for command [%s]", hdr.command))
	}

	if err := msg.GlintDecode(bytes.NewReader(payload), pver, BaseEncoding); err != nil {
		return totalBytes, nil, nil, err
	}

	return totalBytes, msg, payload, nil
}

// ReadMessage is the equivalent of calling ReadMessageN and discarding the
// returned byte count.
func ReadMessage(r io.Reader, pver uint32, net GlintNet) (Message, []byte, error) {
	_, msg, buf, err := ReadMessageN(r, pver, net)
	return msg, buf, err
}

func isValidCommand(cmd string) bool {
	switch cmd {
	case CmdVersion, CmdVerAck, CmdPing, CmdPong, CmdInv, CmdGetData,
		CmdGetHeaders, CmdHeaders, CmdBlock, CmdTx, CmdNotFound, CmdReject:
		return true
	default:
		return false
	}
}

func dsha256Checksum(payload []byte) [4]byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	var out [4]byte
	copy(out[:], second[:4])
	return out
}

func binaryWrite(w io.Writer, v uint32) error {
	var buf [4]byte
	littleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}
