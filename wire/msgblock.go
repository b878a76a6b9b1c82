// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/glintchain/glintd/chaincfg/chainhash"
)

// MaxBlockPayload is the maximum number of bytes a block message payload
// may occupy, bounding a peer's claimed block size before an allocation is
// attempted.
const MaxBlockPayload = 4 * 1024 * 1024

// maxTxPerBlock is a sanity ceiling on the transaction count a block may
// declare, independent of the byte-size limit, so a corrupt varint can't
// force an oversized slice allocation.
const maxTxPerBlock = MaxBlockPayload / 60

// TxLoc holds the start and length of a transaction's canonical
// serialization within a block's serialized byte stream, letting a caller
// slice out raw transaction bytes without re-serializing.
type TxLoc struct {
	TxStart int
	TxLen   int
}

// MsgBlock is a Glintchain block: a header committing to the transaction
// list that follows it, the coinbase transaction first.
type MsgBlock struct {
	Header       BlockHeader
	Transactions []*MsgTx
}

// AddTransaction adds a transaction to the message.
func (msg *MsgBlock) AddTransaction(tx *MsgTx) {
	msg.Transactions = append(msg.Transactions, tx)
}

// ClearTransactions removes all transactions from the message.
func (msg *MsgBlock) ClearTransactions() {
	msg.Transactions = make([]*MsgTx, 0)
}

// BlockHash computes the double-SHA256 block identifier hash of the header.
func (msg *MsgBlock) BlockHash() chainhash.Hash {
	return msg.Header.BlockHash()
}

// GlintDecode decodes r into the receiver using the wire encoding. This is
// part of the Message interface implementation.
func (msg *MsgBlock) GlintDecode(r io.Reader, pver uint32, enc MessageEncoding) error {
	if err := readBlockHeader(r, pver, &msg.Header); err != nil {
		return err
	}

	txCount, err := ReadVarInt(r, pver)
	if err != nil {
		return err
	}
	if txCount > maxTxPerBlock {
		return messageError("MsgBlock.GlintDecode",
			fmt.Sprintf("too many transactions to fit into a block [count %d, max %d]", txCount, maxTxPerBlock))
	}

	msg.Transactions = make([]*MsgTx, 0, txCount)
	for i := uint64(0); i < txCount; i++ {
		tx := &MsgTx{}
		if err := tx.GlintDecode(r, pver, enc); err != nil {
			return err
		}
		msg.Transactions = append(msg.Transactions, tx)
	}

	return nil
}

// GlintEncode encodes the receiver to w using the wire encoding.
func (msg *MsgBlock) GlintEncode(w io.Writer, pver uint32, enc MessageEncoding) error {
	if err := writeBlockHeader(w, pver, &msg.Header); err != nil {
		return err
	}

	if err := WriteVarInt(w, pver, uint64(len(msg.Transactions))); err != nil {
		return err
	}

	for _, tx := range msg.Transactions {
		if err := tx.GlintEncode(w, pver, enc); err != nil {
			return err
		}
	}

	return nil
}

// Deserialize decodes a block from r using the storage format, which at
// present matches the wire format exactly.
func (msg *MsgBlock) Deserialize(r io.Reader) error {
	return msg.GlintDecode(r, 0, BaseEncoding)
}

// DeserializeTxLoc decodes a block from r and additionally records the
// byte-range of each decoded transaction within r, for callers that want
// raw transaction bytes without re-serializing.
func (msg *MsgBlock) DeserializeTxLoc(r *bytes.Buffer) ([]TxLoc, error) {
	fullLen := r.Len()

	if err := readBlockHeader(r, 0, &msg.Header); err != nil {
		return nil, err
	}

	txCount, err := ReadVarInt(r, 0)
	if err != nil {
		return nil, err
	}
	if txCount > maxTxPerBlock {
		return nil, messageError("MsgBlock.DeserializeTxLoc",
			fmt.Sprintf("too many transactions to fit into a block [count %d, max %d]", txCount, maxTxPerBlock))
	}

	txLocs := make([]TxLoc, txCount)
	msg.Transactions = make([]*MsgTx, 0, txCount)
	for i := uint64(0); i < txCount; i++ {
		txLocs[i].TxStart = fullLen - r.Len()

		tx := &MsgTx{}
		if err := tx.Deserialize(r); err != nil {
			return nil, err
		}
		msg.Transactions = append(msg.Transactions, tx)

		txLocs[i].TxLen = (fullLen - r.Len()) - txLocs[i].TxStart
	}

	return txLocs, nil
}

// Serialize encodes the receiver to w using the storage format.
func (msg *MsgBlock) Serialize(w io.Writer) error {
	return msg.GlintEncode(w, 0, BaseEncoding)
}

// SerializeSize returns the number of bytes the canonical serialization of
// the block occupies: the fixed 80-byte header plus the transaction count
// prefix and every transaction.
func (msg *MsgBlock) SerializeSize() int {
	n := BlockHeaderLen + VarIntSerializeSize(uint64(len(msg.Transactions)))
	for _, tx := range msg.Transactions {
		n += tx.SerializeSize()
	}
	return n
}

// Bytes returns the canonical serialization of the block.
func (msg *MsgBlock) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(msg.SerializeSize())
	if err := msg.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Command returns the protocol command string for the message. This is part
// of the Message interface implementation.
func (msg *MsgBlock) Command() string {
	return CmdBlock
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver. This is part of the Message interface implementation.
func (msg *MsgBlock) MaxPayloadLength(pver uint32) uint32 {
	return MaxBlockPayload
}

// TxHashes returns the txid of every transaction in the block, in order,
// the leaf set a merkle root is computed over.
func (msg *MsgBlock) TxHashes() []chainhash.Hash {
	hashes := make([]chainhash.Hash, len(msg.Transactions))
	for i, tx := range msg.Transactions {
		hashes[i] = tx.TxHash()
	}
	return hashes
}

// NewMsgBlock returns a new block message with no transactions, built atop
// the provided header.
func NewMsgBlock(blockHeader *BlockHeader) *MsgBlock {
	return &MsgBlock{
		Header:       *blockHeader,
		Transactions: make([]*MsgTx, 0, defaultTransactionAlloc),
	}
}

// defaultTransactionAlloc is the initial capacity reserved for a new
// block's transaction slice, sized for a typical block rather than the
// protocol maximum.
const defaultTransactionAlloc = 2048
