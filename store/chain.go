// Copyright (c) 2024 The Glintchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package store

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/glintchain/glintd/blockchain"
	"github.com/glintchain/glintd/chaincfg/chainhash"
	"github.com/glintchain/glintd/wire"
)

// PutHeader persists a block header by its own hash.
func (s *Store) PutHeader(header *wire.BlockHeader) error {
	var buf bytes.Buffer
	if err := header.Serialize(&buf); err != nil {
		return err
	}
	return s.put(headerKey(header.BlockHash()), buf.Bytes())
}

// GetHeader returns the header stored under hash, or ErrNotFound.
func (s *Store) GetHeader(hash chainhash.Hash) (*wire.BlockHeader, error) {
	raw, err := s.get(headerKey(hash))
	if err != nil {
		return nil, err
	}
	var header wire.BlockHeader
	if err := header.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("store: decode header %s: %w", hash, err)
	}
	return &header, nil
}

// PutBlock persists a full block body by its header hash.
func (s *Store) PutBlock(block *wire.MsgBlock) error {
	var buf bytes.Buffer
	if err := block.Serialize(&buf); err != nil {
		return err
	}
	return s.put(blockKey(block.BlockHash()), buf.Bytes())
}

// GetBlock returns the block stored under hash, or ErrNotFound.
func (s *Store) GetBlock(hash chainhash.Hash) (*wire.MsgBlock, error) {
	raw, err := s.get(blockKey(hash))
	if err != nil {
		return nil, err
	}
	var block wire.MsgBlock
	if err := block.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("store: decode block %s: %w", hash, err)
	}
	return &block, nil
}

// HasBlock reports whether a block body is already persisted for hash.
func (s *Store) HasBlock(hash chainhash.Hash) (bool, error) {
	return s.has(blockKey(hash))
}

// PutUTXO persists a single unspent output.
func (s *Store) PutUTXO(op wire.OutPoint, entry *blockchain.UtxoEntry) error {
	return s.put(utxoKey(op), encodeUtxoEntry(entry))
}

// DeleteUTXO removes the entry for op, marking it spent.
func (s *Store) DeleteUTXO(op wire.OutPoint) error {
	return s.delete(utxoKey(op))
}

// GetUTXO returns the entry for op, or (nil, nil) if it is unknown or
// already spent — matching blockchain.UtxoSource's contract.
func (s *Store) GetUTXO(op wire.OutPoint) (*blockchain.UtxoEntry, error) {
	raw, err := s.get(utxoKey(op))
	if err != nil {
		if err == ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return decodeUtxoEntry(raw)
}

// FetchUtxoEntry implements blockchain.UtxoSource, letting a
// blockchain.UtxoViewpoint page unspent outputs in from disk on a cache
// miss instead of keeping the entire set resident in memory.
func (s *Store) FetchUtxoEntry(outpoint wire.OutPoint) (*blockchain.UtxoEntry, error) {
	return s.GetUTXO(outpoint)
}

// UndoRecord holds everything connecting a block removed from the UTXO
// set, so disconnecting that block during a reorg can restore it without
// rescanning the whole chain: the entries spent by its transactions,
// keyed by the outpoint they once occupied. The outputs the block itself
// created need no separate record, since they're exactly that block's own
// transaction outputs and can be deleted by re-deriving their outpoints
// from the stored block body.
type UndoRecord struct {
	SpentOutputs map[wire.OutPoint]*blockchain.UtxoEntry
}

// PutUndo persists the undo record for the block connected at height.
func (s *Store) PutUndo(height int32, undo *UndoRecord) error {
	raw, err := encodeUndoRecord(undo)
	if err != nil {
		return err
	}
	return s.put(undoKey(height), raw)
}

// GetUndo returns the undo record for height, or ErrNotFound.
func (s *Store) GetUndo(height int32) (*UndoRecord, error) {
	raw, err := s.get(undoKey(height))
	if err != nil {
		return nil, err
	}
	return decodeUndoRecord(raw)
}

// DeleteUndo removes the undo record for height, once it can no longer be
// needed (the block is buried past any plausible reorg depth).
func (s *Store) DeleteUndo(height int32) error {
	return s.delete(undoKey(height))
}

// SetTip records the hash and height of the current best chain tip.
func (s *Store) SetTip(hash chainhash.Hash, height int32) error {
	buf := make([]byte, chainhash.HashSize+4)
	copy(buf, hash[:])
	binary.BigEndian.PutUint32(buf[chainhash.HashSize:], uint32(height))
	return s.put(metaTip, buf)
}

// Tip returns the persisted best-chain hash and height, or ErrNotFound if
// none has ever been recorded.
func (s *Store) Tip() (chainhash.Hash, int32, error) {
	raw, err := s.get(metaTip)
	if err != nil {
		return chainhash.Hash{}, 0, err
	}
	if len(raw) != chainhash.HashSize+4 {
		return chainhash.Hash{}, 0, fmt.Errorf("store: corrupt tip record (%d bytes)", len(raw))
	}
	var hash chainhash.Hash
	copy(hash[:], raw[:chainhash.HashSize])
	height := int32(binary.BigEndian.Uint32(raw[chainhash.HashSize:]))
	return hash, height, nil
}

// CommitBlock durably records every effect of connecting block at height
// in one atomic write: its header and body, the undo record needed to
// disconnect it later, the UTXO entries it spent and created, and the new
// chain tip. Either all of it lands or none of it does.
func (s *Store) CommitBlock(block *wire.MsgBlock, height int32, undo *UndoRecord, spent map[wire.OutPoint]struct{}, created map[wire.OutPoint]*blockchain.UtxoEntry) error {
	batch := NewBatch()

	var headerBuf bytes.Buffer
	if err := block.Header.Serialize(&headerBuf); err != nil {
		return err
	}
	hash := block.BlockHash()
	batch.put(headerKey(hash), headerBuf.Bytes())

	var blockBuf bytes.Buffer
	if err := block.Serialize(&blockBuf); err != nil {
		return err
	}
	batch.put(blockKey(hash), blockBuf.Bytes())

	undoRaw, err := encodeUndoRecord(undo)
	if err != nil {
		return err
	}
	batch.put(undoKey(height), undoRaw)

	for op := range spent {
		batch.delete(utxoKey(op))
	}
	for op, entry := range created {
		batch.put(utxoKey(op), encodeUtxoEntry(entry))
	}

	tipBuf := make([]byte, chainhash.HashSize+4)
	copy(tipBuf, hash[:])
	binary.BigEndian.PutUint32(tipBuf[chainhash.HashSize:], uint32(height))
	batch.put(metaTip, tipBuf)

	return s.Commit(batch)
}

// encodeUtxoEntry lays out a UtxoEntry as:
// amount i64le | block_height i32le | is_coinbase u8 | pkscript
func encodeUtxoEntry(e *blockchain.UtxoEntry) []byte {
	out := make([]byte, 8+4+1+len(e.PkScript))
	binary.LittleEndian.PutUint64(out[0:8], uint64(e.Amount))
	binary.LittleEndian.PutUint32(out[8:12], uint32(e.BlockHeight))
	if e.IsCoinBase {
		out[12] = 1
	}
	copy(out[13:], e.PkScript)
	return out
}

func decodeUtxoEntry(b []byte) (*blockchain.UtxoEntry, error) {
	if len(b) < 13 {
		return nil, fmt.Errorf("store: truncated utxo entry (%d bytes)", len(b))
	}
	return &blockchain.UtxoEntry{
		Amount:      int64(binary.LittleEndian.Uint64(b[0:8])),
		BlockHeight: int32(binary.LittleEndian.Uint32(b[8:12])),
		IsCoinBase:  b[12] != 0,
		PkScript:    append([]byte(nil), b[13:]...),
	}, nil
}

// encodeUndoRecord lays out a sequence of (outpoint, entry) pairs:
// count u32le | { txid 32 | vout u32le | entry_len u32le | entry }...
func encodeUndoRecord(u *UndoRecord) ([]byte, error) {
	var buf bytes.Buffer
	var count [4]byte
	binary.LittleEndian.PutUint32(count[:], uint32(len(u.SpentOutputs)))
	buf.Write(count[:])

	for op, entry := range u.SpentOutputs {
		buf.Write(op.Hash[:])
		var idx [4]byte
		binary.LittleEndian.PutUint32(idx[:], op.Index)
		buf.Write(idx[:])

		enc := encodeUtxoEntry(entry)
		var l [4]byte
		binary.LittleEndian.PutUint32(l[:], uint32(len(enc)))
		buf.Write(l[:])
		buf.Write(enc)
	}
	return buf.Bytes(), nil
}

func decodeUndoRecord(b []byte) (*UndoRecord, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("store: truncated undo record")
	}
	count := binary.LittleEndian.Uint32(b[0:4])
	b = b[4:]

	spent := make(map[wire.OutPoint]*blockchain.UtxoEntry, count)
	for i := uint32(0); i < count; i++ {
		if len(b) < chainhash.HashSize+4+4 {
			return nil, fmt.Errorf("store: truncated undo record entry %d", i)
		}
		var op wire.OutPoint
		copy(op.Hash[:], b[:chainhash.HashSize])
		b = b[chainhash.HashSize:]
		op.Index = binary.LittleEndian.Uint32(b[:4])
		b = b[4:]

		entryLen := binary.LittleEndian.Uint32(b[:4])
		b = b[4:]
		if uint32(len(b)) < entryLen {
			return nil, fmt.Errorf("store: truncated undo record entry %d payload", i)
		}
		entry, err := decodeUtxoEntry(b[:entryLen])
		if err != nil {
			return nil, fmt.Errorf("store: undo record entry %d: %w", i, err)
		}
		b = b[entryLen:]
		spent[op] = entry
	}
	return &UndoRecord{SpentOutputs: spent}, nil
}
