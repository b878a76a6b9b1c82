// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package crypto implements the sole signature contract consensus depends
// on: ECDSA-over-secp256k1 sign/verify with mandatory low-S normalization,
// so that a signature and its negated-S twin cannot both be valid
// (transaction malleability).
package crypto

import (
	"crypto/sha256"
	"errors"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// PrivateKey and PublicKey are re-exported so callers never need to import
// the underlying secp256k1 library directly.
type (
	PrivateKey = secp256k1.PrivateKey
	PublicKey  = secp256k1.PublicKey
)

// GeneratePrivateKey returns a new random secp256k1 private key, for
// tests and tooling — never on a consensus-validation path.
func GeneratePrivateKey() (*PrivateKey, error) {
	return secp256k1.GeneratePrivateKey()
}

// ParsePubKey parses a serialized (compressed or uncompressed) secp256k1
// public key.
func ParsePubKey(data []byte) (*PublicKey, error) {
	return secp256k1.ParsePubKey(data)
}

// Sha256d computes the double-SHA256 message hash a signature commits to.
// Kept local to avoid a dependency from crypto on chaincfg/chainhash.
func Sha256d(msg []byte) [32]byte {
	first := sha256.Sum256(msg)
	return sha256.Sum256(first[:])
}

// Sign produces a deterministic (RFC6979) ECDSA signature over messageHash
// using key, DER-encoded. The underlying library always returns the
// low-S form; Verify below still checks it explicitly so a non-conforming
// signature from elsewhere in the wire protocol is caught.
func Sign(key *PrivateKey, messageHash []byte) []byte {
	sig := ecdsa.Sign(key, messageHash)
	return sig.Serialize()
}

// errLowS is returned by Verify when a syntactically valid signature is
// rejected solely because its S component is not the low-S normalized
// form.
var errLowS = errors.New("crypto: signature S value is not in the low half order range")

// Verify is the sole signature contract consensus code calls. It parses a
// DER-encoded ECDSA signature, rejects any with a high-S value, and
// verifies it against messageHash and pubKey.
func Verify(sigDER, messageHash, pubKeyBytes []byte) (bool, error) {
	sig, err := ecdsa.ParseDERSignature(sigDER)
	if err != nil {
		return false, err
	}

	if !isLowS(sigDER) {
		return false, errLowS
	}

	pubKey, err := secp256k1.ParsePubKey(pubKeyBytes)
	if err != nil {
		return false, err
	}

	return sig.Verify(messageHash, pubKey), nil
}

// halfOrder is n/2 for the secp256k1 group order, the threshold BIP0062
// low-S normalization enforces.
var halfOrder, _ = new(big.Int).SetString(
	"7FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF5D576E7357A4501DDFE92F46681B20A0", 16)

// isLowS reports whether the S value of the DER-encoded signature der is
// <= n/2. S is read from the bytes Verify was given, which have already
// passed ecdsa.ParseDERSignature.
func isLowS(der []byte) bool {
	// DER: 0x30 len 0x02 rlen R 0x02 slen S
	rlen := int(der[3])
	sOff := 4 + rlen + 2
	slen := int(der[4+rlen+1])
	sBytes := der[sOff : sOff+slen]

	s := new(big.Int).SetBytes(sBytes)
	return s.Cmp(halfOrder) <= 0
}
