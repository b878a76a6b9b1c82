// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"github.com/glintchain/glintd/chaincfg/chainhash"
	"github.com/glintchain/glintd/crypto"
	"github.com/glintchain/glintd/wire"
)

// CalcSignatureHash computes the simplified legacy signature hash for
// input idx of tx: every other input's signature script is blanked, the
// input being signed has its signature script replaced with the referenced
// previous output's pkScript, and the result is double-SHA256'd. There is
// no sighash type byte; only a single, implicit SIGHASH_ALL-equivalent
// mode is supported.
func CalcSignatureHash(pkScript []byte, tx *wire.MsgTx, idx int) ([]byte, error) {
	if idx < 0 || idx >= len(tx.TxIn) {
		return nil, scriptError(ErrInvalidOpcode, "signature hash index out of range")
	}

	txCopy := tx.Copy()
	for i := range txCopy.TxIn {
		if i == idx {
			txCopy.TxIn[i].SignatureScript = pkScript
		} else {
			txCopy.TxIn[i].SignatureScript = nil
		}
	}

	raw, err := txCopy.Bytes()
	if err != nil {
		return nil, err
	}

	hash := chainhash.HashB(raw)
	return hash, nil
}

// SignatureScript builds a standard pay-to-pubkey-hash unlocking script:
// <sig> <pubKey>, where sig is a DER-encoded signature over tx's
// simplified signature hash for input idx, committing to prevPkScript.
func SignatureScript(tx *wire.MsgTx, idx int, prevPkScript []byte, key *crypto.PrivateKey, compressedPubKey bool) ([]byte, error) {
	hash, err := CalcSignatureHash(prevPkScript, tx, idx)
	if err != nil {
		return nil, err
	}

	sig := crypto.Sign(key, hash)

	pubKeyBytes := key.PubKey().SerializeUncompressed()
	if compressedPubKey {
		pubKeyBytes = key.PubKey().SerializeCompressed()
	}

	script := make([]byte, 0, 1+len(sig)+1+len(pubKeyBytes))
	script = append(script, CanonicalDataPush(sig)...)
	script = append(script, CanonicalDataPush(pubKeyBytes)...)
	return script, nil
}

// CanonicalDataPush returns the shortest opcode encoding of a literal data
// push for v. Exported for callers that assemble scripts outside of
// signing, such as a coinbase's height and extranonce pushes.
func CanonicalDataPush(v []byte) []byte {
	n := len(v)
	switch {
	case n <= int(OP_DATA_75):
		return append([]byte{byte(n)}, v...)
	case n <= 0xff:
		return append([]byte{OP_PUSHDATA1, byte(n)}, v...)
	case n <= 0xffff:
		return append([]byte{OP_PUSHDATA2, byte(n), byte(n >> 8)}, v...)
	default:
		return append([]byte{OP_PUSHDATA4,
			byte(n), byte(n >> 8), byte(n >> 16), byte(n >> 24)}, v...)
	}
}
