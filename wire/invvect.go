// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"

	"github.com/glintchain/glintd/chaincfg/chainhash"
)

// InvType represents the allowed types of an inventory vector.
type InvType uint32

const (
	InvTypeTx    InvType = 1
	InvTypeBlock InvType = 2
)

var ivStrings = map[InvType]string{
	InvTypeTx:    "MSG_TX",
	InvTypeBlock: "MSG_BLOCK",
}

func (invtype InvType) String() string {
	if s, ok := ivStrings[invtype]; ok {
		return s
	}
	return fmt.Sprintf("Unknown InvType (%d)", uint32(invtype))
}

// MaxInvPerMsg is the maximum number of inventory vectors that can be in a
// single inv, getdata, or notfound message.
const MaxInvPerMsg = 50000

// maxInvVectPayload is the number of bytes a single InvVect occupies on the
// wire: type(4) + hash(32).
const maxInvVectPayload = 4 + chainhash.HashSize

// defaultInvListAlloc is a reasonable starting capacity for an inventory
// vector list, avoiding repeated growth for the common small-batch case
// while not over-allocating for MaxInvPerMsg up front.
const defaultInvListAlloc = 1000

// InvVect names a single piece of inventory: its kind and content hash.
type InvVect struct {
	Type InvType
	Hash chainhash.Hash
}

// NewInvVect returns a new InvVect.
func NewInvVect(typ InvType, hash *chainhash.Hash) *InvVect {
	return &InvVect{Type: typ, Hash: *hash}
}

func readInvVectBuf(r io.Reader, pver uint32, iv *InvVect, buf []byte) error {
	if _, err := io.ReadFull(r, buf[:4]); err != nil {
		return err
	}
	iv.Type = InvType(littleEndian.Uint32(buf[:4]))

	_, err := io.ReadFull(r, iv.Hash[:])
	return err
}

func writeInvVectBuf(w io.Writer, pver uint32, iv *InvVect, buf []byte) error {
	littleEndian.PutUint32(buf[:4], uint32(iv.Type))
	if _, err := w.Write(buf[:4]); err != nil {
		return err
	}

	_, err := w.Write(iv.Hash[:])
	return err
}
