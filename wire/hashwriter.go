// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"crypto/sha256"
	"hash"

	"github.com/glintchain/glintd/chaincfg/chainhash"
)

// hashWriter accumulates written bytes and double-SHA256s them on demand,
// letting block/header hashing share the same serialize routines used for
// the wire and on-disk encodings instead of buffering a byte slice first.
type hashWriter struct {
	h hash.Hash
}

func newHashWriter() *hashWriter {
	return &hashWriter{h: sha256.New()}
}

func (hw *hashWriter) Write(p []byte) (int, error) {
	return hw.h.Write(p)
}

func (hw *hashWriter) sum() chainhash.Hash {
	first := hw.h.Sum(nil)
	second := sha256.Sum256(first)
	return chainhash.Hash(second)
}
