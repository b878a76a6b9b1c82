// Copyright (c) 2013-2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainutil

import (
	"math/big"

	"github.com/glintchain/glintd/chaincfg/chainhash"
)

const alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var alphabetIdx [256]int8

func init() {
	for i := range alphabetIdx {
		alphabetIdx[i] = -1
	}
	for i, c := range alphabet {
		alphabetIdx[c] = int8(i)
	}
}

var bigRadix = big.NewInt(58)
var bigZero = big.NewInt(0)

// base58Encode encodes a byte slice as a base58 string.
func base58Encode(b []byte) string {
	x := new(big.Int).SetBytes(b)

	answer := make([]byte, 0, len(b)*136/100+1)
	mod := new(big.Int)
	for x.Cmp(bigZero) > 0 {
		x.DivMod(x, bigRadix, mod)
		answer = append(answer, alphabet[mod.Int64()])
	}

	for _, i := range b {
		if i != 0 {
			break
		}
		answer = append(answer, alphabet[0])
	}

	for i, j := 0, len(answer)-1; i < j; i, j = i+1, j-1 {
		answer[i], answer[j] = answer[j], answer[i]
	}

	return string(answer)
}

// base58Decode decodes a base58-encoded string into a byte slice.
func base58Decode(s string) []byte {
	answer := big.NewInt(0)
	j := big.NewInt(1)

	scratch := new(big.Int)
	for i := len(s) - 1; i >= 0; i-- {
		tmp := alphabetIdx[s[i]]
		if tmp == -1 {
			return []byte{}
		}
		scratch.SetInt64(int64(tmp))
		scratch.Mul(j, scratch)
		answer.Add(answer, scratch)
		j.Mul(j, bigRadix)
	}

	tmpval := answer.Bytes()

	var numZeros int
	for numZeros = 0; numZeros < len(s); numZeros++ {
		if s[numZeros] != alphabet[0] {
			break
		}
	}
	flen := numZeros + len(tmpval)
	val := make([]byte, flen)
	copy(val[numZeros:], tmpval)

	return val
}

// checksum returns the first four bytes of dsha256(input).
func checksum(input []byte) (cksum [4]byte) {
	h := chainhash.HashB(input)
	copy(cksum[:], h[:4])
	return
}

// Base58CheckEncode prepends a version byte and appends a four byte
// checksum to data, then encodes the result with base58 encoding.
func Base58CheckEncode(data []byte, version byte) string {
	b := make([]byte, 0, 1+len(data)+4)
	b = append(b, version)
	b = append(b, data...)
	cksum := checksum(b)
	b = append(b, cksum[:]...)
	return base58Encode(b)
}

// Base58CheckDecode decodes a string encoded with Base58CheckEncode and
// verifies the checksum, returning the decoded payload and version byte.
func Base58CheckDecode(input string) (result []byte, version byte, err error) {
	decoded := base58Decode(input)
	if len(decoded) < 5 {
		return nil, 0, ErrMalformedAddress
	}
	version = decoded[0]
	var cksum [4]byte
	copy(cksum[:], decoded[len(decoded)-4:])
	payload := decoded[1 : len(decoded)-4]
	if checksum(decoded[:len(decoded)-4]) != cksum {
		return nil, 0, ErrChecksumMismatch
	}
	return payload, version, nil
}
