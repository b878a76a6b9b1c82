// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"fmt"

	"github.com/glintchain/glintd/chainutil"
	"github.com/glintchain/glintd/crypto"
)

// parsedOpcode is one decoded instruction: either a data push (Data
// non-nil, possibly zero-length) or an executable opcode.
type parsedOpcode struct {
	opcode byte
	data   []byte
}

// parseScript decodes raw script bytes into a sequence of parsedOpcode,
// failing if a push opcode's declared length runs past the end of the
// script or exceeds MaxScriptElementSize.
func parseScript(script []byte) ([]parsedOpcode, error) {
	var parsed []parsedOpcode

	for i := 0; i < len(script); {
		op := script[i]
		switch {
		case op == OP_0:
			parsed = append(parsed, parsedOpcode{opcode: op, data: []byte{}})
			i++

		case op >= OP_DATA_1 && op <= OP_DATA_75:
			n := int(op)
			if i+1+n > len(script) {
				return nil, scriptError(ErrInvalidOpcode, "push data past end of script")
			}
			parsed = append(parsed, parsedOpcode{opcode: op, data: script[i+1 : i+1+n]})
			i += 1 + n

		case op == OP_PUSHDATA1:
			if i+2 > len(script) {
				return nil, scriptError(ErrInvalidOpcode, "OP_PUSHDATA1 past end of script")
			}
			n := int(script[i+1])
			if i+2+n > len(script) {
				return nil, scriptError(ErrInvalidOpcode, "OP_PUSHDATA1 data past end of script")
			}
			parsed = append(parsed, parsedOpcode{opcode: op, data: script[i+2 : i+2+n]})
			i += 2 + n

		case op == OP_PUSHDATA2:
			if i+3 > len(script) {
				return nil, scriptError(ErrInvalidOpcode, "OP_PUSHDATA2 past end of script")
			}
			n := int(script[i+1]) | int(script[i+2])<<8
			if i+3+n > len(script) {
				return nil, scriptError(ErrInvalidOpcode, "OP_PUSHDATA2 data past end of script")
			}
			parsed = append(parsed, parsedOpcode{opcode: op, data: script[i+3 : i+3+n]})
			i += 3 + n

		case op == OP_PUSHDATA4:
			if i+5 > len(script) {
				return nil, scriptError(ErrInvalidOpcode, "OP_PUSHDATA4 past end of script")
			}
			n := int(script[i+1]) | int(script[i+2])<<8 | int(script[i+3])<<16 | int(script[i+4])<<24
			if i+5+n > len(script) {
				return nil, scriptError(ErrInvalidOpcode, "OP_PUSHDATA4 data past end of script")
			}
			parsed = append(parsed, parsedOpcode{opcode: op, data: script[i+5 : i+5+n]})
			i += 5 + n

		case op == OP_RETURN, op == OP_DUP, op == OP_EQUALVERIFY, op == OP_HASH160, op == OP_CHECKSIG:
			parsed = append(parsed, parsedOpcode{opcode: op})
			i++

		default:
			return nil, scriptError(ErrInvalidOpcode, fmt.Sprintf("unsupported opcode 0x%02x", op))
		}

		if len(parsed) > 0 && len(parsed[len(parsed)-1].data) > MaxScriptElementSize {
			return nil, scriptError(ErrElementTooBig, "element exceeds max allowed size")
		}
	}

	return parsed, nil
}

// maxOpsFactor bounds an executing script's step count to a small multiple
// of its own byte length, ruling out any unbounded loop even though the
// opcode set has no jump instructions to create one.
const maxOpsFactor = 4

// SigChecker abstracts the signature-verification contract OP_CHECKSIG
// relies on, so the engine can be tested independently of a live
// transaction.
type SigChecker interface {
	CheckSig(sig, pubKey []byte) bool
}

// Engine evaluates a script_sig and script_pubkey pair against a data
// stack, using sig for OP_CHECKSIG's signature-verification contract.
type Engine struct {
	scriptSig    []byte
	scriptPubKey []byte
	sig          SigChecker
	stack        [][]byte
}

// NewEngine returns an Engine ready to evaluate scriptSig followed by
// scriptPubKey against sig's signature-verification contract.
func NewEngine(scriptSig, scriptPubKey []byte, sig SigChecker) *Engine {
	return &Engine{scriptSig: scriptSig, scriptPubKey: scriptPubKey, sig: sig}
}

// Execute evaluates scriptSig ‖ scriptPubKey in order and reports whether
// the program succeeds: it must terminate with a non-empty stack whose top
// element is truthy.
func (e *Engine) Execute() error {
	ops, err := parseScript(append(append([]byte{}, e.scriptSig...), e.scriptPubKey...))
	if err != nil {
		return err
	}

	maxOps := maxOpsFactor * (len(e.scriptSig) + len(e.scriptPubKey))
	if maxOps < 16 {
		maxOps = 16
	}

	stepCount := 0
	for _, pop := range ops {
		stepCount++
		if stepCount > maxOps {
			return scriptError(ErrTooManyOperations, "exceeded maximum operation count")
		}

		if err := e.step(pop); err != nil {
			return err
		}
	}

	if len(e.stack) == 0 {
		return scriptError(ErrEvalFalse, "stack empty at end of script")
	}
	if !asBool(e.stack[len(e.stack)-1]) {
		return scriptError(ErrEvalFalse, "false result at end of script")
	}

	return nil
}

func (e *Engine) step(pop parsedOpcode) error {
	if isPushOnlyDataOpcode(pop.opcode) {
		e.push(pop.data)
		return nil
	}

	switch pop.opcode {
	case OP_RETURN:
		return scriptError(ErrEarlyReturn, "OP_RETURN executed")

	case OP_DUP:
		top, err := e.peek(0)
		if err != nil {
			return err
		}
		e.push(append([]byte{}, top...))

	case OP_HASH160:
		v, err := e.pop()
		if err != nil {
			return err
		}
		e.push(chainutil.Hash160(v))

	case OP_EQUALVERIFY:
		b, err := e.pop()
		if err != nil {
			return err
		}
		a, err := e.pop()
		if err != nil {
			return err
		}
		if !bytes.Equal(a, b) {
			return scriptError(ErrEqualVerify, "OP_EQUALVERIFY failed")
		}

	case OP_CHECKSIG:
		pubKey, err := e.pop()
		if err != nil {
			return err
		}
		sig, err := e.pop()
		if err != nil {
			return err
		}
		if e.sig != nil && e.sig.CheckSig(sig, pubKey) {
			e.push([]byte{1})
		} else {
			e.push(nil)
		}

	default:
		return scriptError(ErrInvalidOpcode, fmt.Sprintf("unsupported opcode 0x%02x", pop.opcode))
	}

	return nil
}

func (e *Engine) push(v []byte) {
	e.stack = append(e.stack, v)
}

func (e *Engine) pop() ([]byte, error) {
	if len(e.stack) == 0 {
		return nil, scriptError(ErrStackUnderflow, "pop on empty stack")
	}
	v := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]
	return v, nil
}

func (e *Engine) peek(n int) ([]byte, error) {
	if n >= len(e.stack) {
		return nil, scriptError(ErrStackUnderflow, "peek past top of stack")
	}
	return e.stack[len(e.stack)-1-n], nil
}

// asBool reports a byte string's script truthiness: any nonzero byte makes
// it true, except a single 0x80 (negative zero), which is false.
func asBool(v []byte) bool {
	for i, b := range v {
		if b == 0 {
			continue
		}
		if i == len(v)-1 && b == 0x80 {
			return false
		}
		return true
	}
	return false
}

// EcdsaSigChecker checks OP_CHECKSIG against a fixed message hash using
// the package-level ECDSA-over-secp256k1 verify contract.
type EcdsaSigChecker struct {
	MessageHash []byte
}

// CheckSig reports whether sig is a valid signature of c.MessageHash under
// pubKey.
func (c EcdsaSigChecker) CheckSig(sig, pubKey []byte) bool {
	ok, err := crypto.Verify(sig, c.MessageHash, pubKey)
	return err == nil && ok
}
