// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"
	"time"

	"github.com/glintchain/glintd/chaincfg/chainhash"
)

// MaxBlockHeaderPayload is the number of bytes a block header occupies:
// version(4) + prevBlock(32) + merkleRoot(32) + timestamp(4) + bits(4) +
// nonce(4).
const MaxBlockHeaderPayload = 16 + (chainhash.HashSize * 2)

// BlockHeaderLen is the fixed wire length of a block header.
const BlockHeaderLen = 80

// BlockHeader holds metadata that, hashed, commits to everything the body
// of a block contains: the identity of the previous block, the merkle
// commitment over the transaction list, the claimed mining time, the
// difficulty target, and the proof-of-work nonce.
type BlockHeader struct {
	Version    int32
	PrevBlock  chainhash.Hash
	MerkleRoot chainhash.Hash
	Timestamp  time.Time
	Bits       uint32
	Nonce      uint32
}

// BlockHash computes the double-SHA256 block identifier hash of the header.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	sum, err := doubleHashRaw(func(w io.Writer) error {
		return writeBlockHeader(w, 0, h)
	})
	if err != nil {
		// writeBlockHeader only fails if the underlying writer fails, and
		// hashWriter's Write never returns an error.
		panic(err)
	}
	return sum
}

// GlintDecode decodes r into the receiver using the wire encoding. This is
// part of the Message interface implementation used when a header arrives
// embedded in a headers message.
func (h *BlockHeader) GlintDecode(r io.Reader, pver uint32, enc MessageEncoding) error {
	return readBlockHeader(r, pver, h)
}

// GlintEncode encodes the receiver to w using the wire encoding.
func (h *BlockHeader) GlintEncode(w io.Writer, pver uint32, enc MessageEncoding) error {
	return writeBlockHeader(w, pver, h)
}

// Deserialize decodes a block header from r using the storage format, which
// at present matches the wire format exactly.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	return readBlockHeader(r, 0, h)
}

// Serialize encodes the receiver to w using the storage format.
func (h *BlockHeader) Serialize(w io.Writer) error {
	return writeBlockHeader(w, 0, h)
}

// Bytes returns the 80-byte wire serialization of the header.
func (h *BlockHeader) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(MaxBlockHeaderPayload)
	if err := h.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NewBlockHeader returns a new BlockHeader using the provided fields, with
// the timestamp truncated to one-second precision as the wire format
// requires.
func NewBlockHeader(version int32, prevHash, merkleRootHash *chainhash.Hash, bits uint32, nonce uint32) *BlockHeader {
	return &BlockHeader{
		Version:    version,
		PrevBlock:  *prevHash,
		MerkleRoot: *merkleRootHash,
		Timestamp:  time.Unix(time.Now().Unix(), 0),
		Bits:       bits,
		Nonce:      nonce,
	}
}

func readBlockHeader(r io.Reader, pver uint32, bh *BlockHeader) error {
	buf := binarySerializer.Borrow()
	err := readBlockHeaderBuf(r, pver, bh, buf)
	binarySerializer.Return(buf)
	return err
}

// readBlockHeaderBuf reads a block header from r, using buf (which must be
// non-nil and at least 8 bytes) for the fixed-width integer fields.
// readBlockHeader supplies one from the binarySerializer pool.
func readBlockHeaderBuf(r io.Reader, pver uint32, bh *BlockHeader, buf []byte) error {
	if _, err := io.ReadFull(r, buf[:4]); err != nil {
		return err
	}
	bh.Version = int32(littleEndian.Uint32(buf[:4]))

	if _, err := io.ReadFull(r, bh.PrevBlock[:]); err != nil {
		return err
	}

	if _, err := io.ReadFull(r, bh.MerkleRoot[:]); err != nil {
		return err
	}

	if _, err := io.ReadFull(r, buf[:4]); err != nil {
		return err
	}
	bh.Timestamp = time.Unix(int64(littleEndian.Uint32(buf[:4])), 0)

	if _, err := io.ReadFull(r, buf[:4]); err != nil {
		return err
	}
	bh.Bits = littleEndian.Uint32(buf[:4])

	if _, err := io.ReadFull(r, buf[:4]); err != nil {
		return err
	}
	bh.Nonce = littleEndian.Uint32(buf[:4])

	return nil
}

func writeBlockHeader(w io.Writer, pver uint32, bh *BlockHeader) error {
	buf := binarySerializer.Borrow()
	err := writeBlockHeaderBuf(w, pver, bh, buf)
	binarySerializer.Return(buf)
	return err
}

func writeBlockHeaderBuf(w io.Writer, pver uint32, bh *BlockHeader, buf []byte) error {
	littleEndian.PutUint32(buf[:4], uint32(bh.Version))
	if _, err := w.Write(buf[:4]); err != nil {
		return err
	}

	if _, err := w.Write(bh.PrevBlock[:]); err != nil {
		return err
	}

	if _, err := w.Write(bh.MerkleRoot[:]); err != nil {
		return err
	}

	littleEndian.PutUint32(buf[:4], uint32(bh.Timestamp.Unix()))
	if _, err := w.Write(buf[:4]); err != nil {
		return err
	}

	littleEndian.PutUint32(buf[:4], bh.Bits)
	if _, err := w.Write(buf[:4]); err != nil {
		return err
	}

	littleEndian.PutUint32(buf[:4], bh.Nonce)
	_, err := w.Write(buf[:4])
	return err
}
