// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainutil

import (
	"crypto/sha256"
	"errors"

	"golang.org/x/crypto/ripemd160"
)

// Errors returned by address decoding.
var (
	ErrMalformedAddress = errors.New("chainutil: malformed address")
	ErrChecksumMismatch = errors.New("chainutil: checksum mismatch")
	ErrUnknownAddrType  = errors.New("chainutil: unknown address type")
)

// Hash160 computes sha256(data) followed by ripemd160, Bitcoin-style, used
// both to derive addresses from public keys and to implement OP_HASH160 in
// txscript.
func Hash160(data []byte) []byte {
	sha := sha256.Sum256(data)
	h := ripemd160.New()
	h.Write(sha[:])
	return h.Sum(nil)
}

// Address is the sole contract consensus and script evaluation depend on:
// a locking-script hash and its wire encoding. Only P2PKH (pay-to-pubkey-
// hash) is supported, matching the fixed small opcode set of the locking
// script evaluator.
type Address interface {
	// EncodeAddress returns the base58check string form of the address.
	EncodeAddress() string

	// ScriptAddress returns the raw bytes the locking script commits to
	// (the hash160 of the public key for a P2PKH address).
	ScriptAddress() []byte

	// IsForNet returns whether the address was minted for the given
	// network's P2PKH version byte.
	IsForNet(net byte) bool
}

// AddressPubKeyHash is a P2PKH address: base58check(version ‖ hash160(pubkey)).
type AddressPubKeyHash struct {
	netID byte
	hash  [ripemd160.Size]byte
}

// NewAddressPubKeyHash returns a new AddressPubKeyHash.  pkHash must be
// 20 bytes (the output of Hash160).
func NewAddressPubKeyHash(pkHash []byte, netID byte) (*AddressPubKeyHash, error) {
	if len(pkHash) != ripemd160.Size {
		return nil, errors.New("chainutil: pkHash must be 20 bytes")
	}
	addr := &AddressPubKeyHash{netID: netID}
	copy(addr.hash[:], pkHash)
	return addr, nil
}

// DecodeAddress decodes a base58check address string, verifying it was
// minted for netID.
func DecodeAddress(addr string, netID byte) (*AddressPubKeyHash, error) {
	payload, version, err := Base58CheckDecode(addr)
	if err != nil {
		return nil, err
	}
	if version != netID {
		return nil, ErrUnknownAddrType
	}
	return NewAddressPubKeyHash(payload, version)
}

func (a *AddressPubKeyHash) EncodeAddress() string {
	return Base58CheckEncode(a.hash[:], a.netID)
}

func (a *AddressPubKeyHash) ScriptAddress() []byte {
	return a.hash[:]
}

func (a *AddressPubKeyHash) IsForNet(net byte) bool {
	return a.netID == net
}

func (a *AddressPubKeyHash) Hash160() *[ripemd160.Size]byte {
	return &a.hash
}

func (a *AddressPubKeyHash) String() string {
	return a.EncodeAddress()
}
