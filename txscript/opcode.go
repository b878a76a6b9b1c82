// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

// Opcodes recognized by the evaluator. This is intentionally a small
// subset of the historical Bitcoin Script opcode space: data pushes, the
// handful of opcodes a P2PKH predicate needs, and OP_RETURN. Any other
// opcode byte is invalid and fails evaluation the moment it is
// encountered.
const (
	// OP_0 pushes an empty byte array (the canonical false/zero value).
	OP_0 = 0x00

	// OP_DATA_1 through OP_DATA_75 push the next N bytes of the script
	// onto the stack, where N is the opcode's value.
	OP_DATA_1  = 0x01
	OP_DATA_75 = 0x4b

	// OP_PUSHDATA1/2/4 push data whose length is given by the next
	// 1/2/4 little-endian bytes, for literals too long to address with
	// a single OP_DATA_N opcode.
	OP_PUSHDATA1 = 0x4c
	OP_PUSHDATA2 = 0x4d
	OP_PUSHDATA4 = 0x4e

	// OP_RETURN immediately fails evaluation, marking the output
	// unspendable. It never appears in a script being satisfied (only
	// in a script_pubkey intended never to be redeemed).
	OP_RETURN = 0x6a

	// OP_DUP duplicates the top stack item.
	OP_DUP = 0x76

	// OP_EQUALVERIFY pops two items, compares them for byte equality,
	// and fails evaluation immediately if they differ.
	OP_EQUALVERIFY = 0x88

	// OP_HASH160 pops the top item and pushes sha256-then-ripemd160 of
	// it.
	OP_HASH160 = 0xa9

	// OP_CHECKSIG pops a public key and a signature, and pushes true or
	// false depending on whether the signature is a valid signature of
	// the transaction's signature hash under that key.
	OP_CHECKSIG = 0xac
)

// MaxScriptElementSize is the largest a single data push may be.
const MaxScriptElementSize = 520

// isPushOnlyDataOpcode reports whether op is one of the data-push forms
// (OP_0, OP_DATA_1..75, OP_PUSHDATA1/2/4) rather than an executable
// opcode.
func isPushOnlyDataOpcode(op byte) bool {
	return op == OP_0 ||
		(op >= OP_DATA_1 && op <= OP_DATA_75) ||
		op == OP_PUSHDATA1 || op == OP_PUSHDATA2 || op == OP_PUSHDATA4
}
