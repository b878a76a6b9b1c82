// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"

	"github.com/glintchain/glintd/chaincfg/chainhash"
)

// MaxTxSize is the maximum serialized size, in bytes, of a single
// transaction.
const MaxTxSize = 100 * 1000

// MaxTxInSequence is the default, unconstrained sequence number.
const MaxTxInSequence uint32 = 0xffffffff

// coinbasePrevOutIndex is the vout a coinbase input's OutPoint carries in
// place of a real previous output index.
const coinbasePrevOutIndex uint32 = 0xffffffff

// maxScriptSize bounds script_sig/script_pubkey lengths read off the wire,
// independent of the opcode-level 520-byte push limit the evaluator
// enforces, purely to stop a peer from claiming an unbounded allocation.
const maxScriptSize = 10000

// OutPoint identifies a specific output of a specific transaction: the
// (txid, vout) pair a UTXO is keyed by and a TxIn spends.
type OutPoint struct {
	Hash  chainhash.Hash
	Index uint32
}

// NewOutPoint returns a new OutPoint.
func NewOutPoint(hash *chainhash.Hash, index uint32) *OutPoint {
	return &OutPoint{Hash: *hash, Index: index}
}

// TxIn defines a transaction input: the previous output it claims to spend
// and the script that unlocks it.
type TxIn struct {
	PreviousOutPoint OutPoint
	SignatureScript  []byte
	Sequence         uint32
}

// NewTxIn returns a new transaction input with the provided previous
// outpoint and signature script, with a default, unconstrained sequence.
func NewTxIn(prevOut *OutPoint, signatureScript []byte) *TxIn {
	return &TxIn{
		PreviousOutPoint: *prevOut,
		SignatureScript:  signatureScript,
		Sequence:         MaxTxInSequence,
	}
}

// SerializeSize returns the number of bytes this input occupies on the
// wire: prevOutPoint(36) + scriptLen(varint) + script + sequence(4).
func (t *TxIn) SerializeSize() int {
	return 40 + VarIntSerializeSize(uint64(len(t.SignatureScript))) + len(t.SignatureScript)
}

// TxOut defines a transaction output: the amount it carries and the script
// that locks it.
type TxOut struct {
	Value    int64
	PkScript []byte
}

// NewTxOut returns a new transaction output with the provided amount and
// locking script.
func NewTxOut(value int64, pkScript []byte) *TxOut {
	return &TxOut{Value: value, PkScript: pkScript}
}

// SerializeSize returns the number of bytes this output occupies on the
// wire: value(8) + scriptLen(varint) + script.
func (t *TxOut) SerializeSize() int {
	return 8 + VarIntSerializeSize(uint64(len(t.PkScript))) + len(t.PkScript)
}

// MsgTx is a Glintchain transaction: an ordered list of inputs spending
// prior outputs, an ordered list of new outputs, and a locktime. Its hash
// (Txid) is the canonical-serialization double-SHA256.
type MsgTx struct {
	Version  int32
	TxIn     []*TxIn
	TxOut    []*TxOut
	LockTime uint32
}

// NewMsgTx returns a new transaction with no inputs or outputs.
func NewMsgTx(version int32) *MsgTx {
	return &MsgTx{Version: version}
}

// AddTxIn adds a transaction input to the message.
func (msg *MsgTx) AddTxIn(ti *TxIn) {
	msg.TxIn = append(msg.TxIn, ti)
}

// AddTxOut adds a transaction output to the message.
func (msg *MsgTx) AddTxOut(to *TxOut) {
	msg.TxOut = append(msg.TxOut, to)
}

// IsCoinBase reports whether the transaction is a coinbase: exactly one
// input whose previous outpoint is the null hash and the max index.
func (msg *MsgTx) IsCoinBase() bool {
	if len(msg.TxIn) != 1 {
		return false
	}
	prevOut := &msg.TxIn[0].PreviousOutPoint
	return prevOut.Index == coinbasePrevOutIndex && prevOut.Hash == (chainhash.Hash{})
}

// TxHash computes the double-SHA256 txid over the canonical serialization.
func (msg *MsgTx) TxHash() chainhash.Hash {
	sum, err := doubleHashRaw(func(w io.Writer) error {
		return msg.serialize(w)
	})
	if err != nil {
		panic(err)
	}
	return sum
}

// SerializeSize returns the number of bytes the canonical serialization of
// the transaction occupies.
func (msg *MsgTx) SerializeSize() int {
	n := 4 + 4 // version + locktime
	n += VarIntSerializeSize(uint64(len(msg.TxIn)))
	for _, ti := range msg.TxIn {
		n += ti.SerializeSize()
	}
	n += VarIntSerializeSize(uint64(len(msg.TxOut)))
	for _, to := range msg.TxOut {
		n += to.SerializeSize()
	}
	return n
}

// GlintDecode decodes r into the receiver. This is part of the Message
// interface implementation.
func (msg *MsgTx) GlintDecode(r io.Reader, pver uint32, enc MessageEncoding) error {
	return msg.deserialize(r)
}

// GlintEncode encodes the receiver to w. This is part of the Message
// interface implementation.
func (msg *MsgTx) GlintEncode(w io.Writer, pver uint32, enc MessageEncoding) error {
	return msg.serialize(w)
}

// Command returns the protocol command string for the message. This is part
// of the Message interface implementation.
func (msg *MsgTx) Command() string {
	return CmdTx
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver. This is part of the Message interface implementation.
func (msg *MsgTx) MaxPayloadLength(pver uint32) uint32 {
	return MaxTxSize
}

// Serialize writes the canonical transaction encoding to w: the sole
// encoding this protocol uses, both on the wire and for storage.
func (msg *MsgTx) Serialize(w io.Writer) error {
	return msg.serialize(w)
}

// Deserialize reads the canonical transaction encoding from r.
func (msg *MsgTx) Deserialize(r io.Reader) error {
	return msg.deserialize(r)
}

// Bytes returns the canonical serialization of the transaction.
func (msg *MsgTx) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(msg.SerializeSize())
	if err := msg.serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (msg *MsgTx) serialize(w io.Writer) error {
	buf := binarySerializer.Borrow()
	defer binarySerializer.Return(buf)

	littleEndian.PutUint32(buf[:4], uint32(msg.Version))
	if _, err := w.Write(buf[:4]); err != nil {
		return err
	}

	if err := WriteVarIntBuf(w, 0, uint64(len(msg.TxIn)), buf); err != nil {
		return err
	}
	for _, ti := range msg.TxIn {
		if _, err := w.Write(ti.PreviousOutPoint.Hash[:]); err != nil {
			return err
		}
		littleEndian.PutUint32(buf[:4], ti.PreviousOutPoint.Index)
		if _, err := w.Write(buf[:4]); err != nil {
			return err
		}
		if err := WriteVarBytes(w, 0, ti.SignatureScript); err != nil {
			return err
		}
		littleEndian.PutUint32(buf[:4], ti.Sequence)
		if _, err := w.Write(buf[:4]); err != nil {
			return err
		}
	}

	if err := WriteVarIntBuf(w, 0, uint64(len(msg.TxOut)), buf); err != nil {
		return err
	}
	for _, to := range msg.TxOut {
		littleEndian.PutUint64(buf[:8], uint64(to.Value))
		if _, err := w.Write(buf[:8]); err != nil {
			return err
		}
		if err := WriteVarBytes(w, 0, to.PkScript); err != nil {
			return err
		}
	}

	littleEndian.PutUint32(buf[:4], msg.LockTime)
	_, err := w.Write(buf[:4])
	return err
}

func (msg *MsgTx) deserialize(r io.Reader) error {
	buf := binarySerializer.Borrow()
	defer binarySerializer.Return(buf)

	if _, err := io.ReadFull(r, buf[:4]); err != nil {
		return err
	}
	msg.Version = int32(littleEndian.Uint32(buf[:4]))

	inCount, err := ReadVarIntBuf(r, 0, buf)
	if err != nil {
		return err
	}

	txIns := make([]TxIn, inCount)
	msg.TxIn = make([]*TxIn, inCount)
	for i := uint64(0); i < inCount; i++ {
		ti := &txIns[i]
		if _, err := io.ReadFull(r, ti.PreviousOutPoint.Hash[:]); err != nil {
			return err
		}
		if _, err := io.ReadFull(r, buf[:4]); err != nil {
			return err
		}
		ti.PreviousOutPoint.Index = littleEndian.Uint32(buf[:4])

		script, err := ReadVarBytes(r, 0, maxScriptSize, "signature script")
		if err != nil {
			return err
		}
		ti.SignatureScript = script

		if _, err := io.ReadFull(r, buf[:4]); err != nil {
			return err
		}
		ti.Sequence = littleEndian.Uint32(buf[:4])

		msg.TxIn[i] = ti
	}

	outCount, err := ReadVarIntBuf(r, 0, buf)
	if err != nil {
		return err
	}

	txOuts := make([]TxOut, outCount)
	msg.TxOut = make([]*TxOut, outCount)
	for i := uint64(0); i < outCount; i++ {
		to := &txOuts[i]
		if _, err := io.ReadFull(r, buf[:8]); err != nil {
			return err
		}
		to.Value = int64(littleEndian.Uint64(buf[:8]))

		script, err := ReadVarBytes(r, 0, maxScriptSize, "public key script")
		if err != nil {
			return err
		}
		to.PkScript = script

		msg.TxOut[i] = to
	}

	if _, err := io.ReadFull(r, buf[:4]); err != nil {
		return err
	}
	msg.LockTime = littleEndian.Uint32(buf[:4])

	return nil
}

// Copy returns a deep copy of the transaction so a caller can mutate a
// candidate (e.g. rolling the coinbase extranonce) without aliasing the
// original.
func (msg *MsgTx) Copy() *MsgTx {
	newTx := &MsgTx{
		Version:  msg.Version,
		LockTime: msg.LockTime,
		TxIn:     make([]*TxIn, len(msg.TxIn)),
		TxOut:    make([]*TxOut, len(msg.TxOut)),
	}

	for i, ti := range msg.TxIn {
		newIn := *ti
		newIn.SignatureScript = append([]byte(nil), ti.SignatureScript...)
		newTx.TxIn[i] = &newIn
	}
	for i, to := range msg.TxOut {
		newOut := *to
		newOut.PkScript = append([]byte(nil), to.PkScript...)
		newTx.TxOut[i] = &newOut
	}

	return newTx
}
