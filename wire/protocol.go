// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
)

// ProtocolVersion is the protocol version this package implements.
const ProtocolVersion uint32 = 1

// ServiceFlag identifies services supported by a Glintchain peer.
type ServiceFlag uint64

const (
	// SFNodeNetwork indicates the peer is a full node able to serve
	// headers, blocks, and transactions.
	SFNodeNetwork ServiceFlag = 1 << iota
)

var sfStrings = map[ServiceFlag]string{
	SFNodeNetwork: "SFNodeNetwork",
}

// String returns the ServiceFlag in human-readable form.
func (f ServiceFlag) String() string {
	if f == 0 {
		return "0x0"
	}
	if s, ok := sfStrings[f]; ok {
		return s
	}
	return fmt.Sprintf("0x%x", uint64(f))
}

// GlintNet identifies which Glintchain network a message belongs to.
type GlintNet uint32

const (
	// MainNet is the production network. The magic bytes F9 BE B4 D9
	// read little-endian as this value.
	MainNet GlintNet = 0xd9b4bef9

	// TestNet is the public test network.
	TestNet GlintNet = 0x0709110b

	// RegTestNet is the local regression-test network, mined on demand
	// with a trivial difficulty target.
	RegTestNet GlintNet = 0xdab5bffa

	// SimNet is the simulation network used by deterministic test
	// harnesses that stand up a whole small network in one process.
	SimNet GlintNet = 0x12141c16
)

var netStrings = map[GlintNet]string{
	MainNet:    "MainNet",
	TestNet:    "TestNet",
	RegTestNet: "RegTestNet",
	SimNet:     "SimNet",
}

// String returns the GlintNet in human-readable form.
func (n GlintNet) String() string {
	if s, ok := netStrings[n]; ok {
		return s
	}
	return fmt.Sprintf("Unknown GlintNet (%d)", uint32(n))
}
