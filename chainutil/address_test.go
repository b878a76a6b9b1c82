// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainutil_test

import (
	"bytes"
	"testing"

	"github.com/glintchain/glintd/chainutil"
)

const (
	mainNetID byte = 0x32
	testNetID byte = 0x74
)

func TestAddressPubKeyHashRoundTrip(t *testing.T) {
	pkHash := bytes.Repeat([]byte{0xAB}, 20)

	addr, err := chainutil.NewAddressPubKeyHash(pkHash, mainNetID)
	if err != nil {
		t.Fatalf("NewAddressPubKeyHash: %v", err)
	}
	if !addr.IsForNet(mainNetID) {
		t.Fatal("address should be valid for mainNetID")
	}
	if addr.IsForNet(testNetID) {
		t.Fatal("address should not be valid for testNetID")
	}

	encoded := addr.EncodeAddress()

	decoded, err := chainutil.DecodeAddress(encoded, mainNetID)
	if err != nil {
		t.Fatalf("DecodeAddress: %v", err)
	}
	if !bytes.Equal(decoded.ScriptAddress(), pkHash) {
		t.Fatalf("got %x, want %x", decoded.ScriptAddress(), pkHash)
	}
	if decoded.EncodeAddress() != encoded {
		t.Fatalf("round trip mismatch: got %s, want %s", decoded.EncodeAddress(), encoded)
	}
}

func TestDecodeAddressWrongNet(t *testing.T) {
	pkHash := bytes.Repeat([]byte{0x01}, 20)
	addr, err := chainutil.NewAddressPubKeyHash(pkHash, mainNetID)
	if err != nil {
		t.Fatalf("NewAddressPubKeyHash: %v", err)
	}

	if _, err := chainutil.DecodeAddress(addr.EncodeAddress(), testNetID); err != chainutil.ErrUnknownAddrType {
		t.Fatalf("got %v, want ErrUnknownAddrType", err)
	}
}

func TestDecodeAddressBadChecksum(t *testing.T) {
	pkHash := bytes.Repeat([]byte{0x02}, 20)
	addr, err := chainutil.NewAddressPubKeyHash(pkHash, mainNetID)
	if err != nil {
		t.Fatalf("NewAddressPubKeyHash: %v", err)
	}

	encoded := addr.EncodeAddress()
	tampered := []byte(encoded)
	// Flip the last character, which lies within the checksum.
	if tampered[len(tampered)-1] == 'a' {
		tampered[len(tampered)-1] = 'b'
	} else {
		tampered[len(tampered)-1] = 'a'
	}

	if _, err := chainutil.DecodeAddress(string(tampered), mainNetID); err != chainutil.ErrChecksumMismatch {
		t.Fatalf("got %v, want ErrChecksumMismatch", err)
	}
}

func TestNewAddressPubKeyHashBadLength(t *testing.T) {
	if _, err := chainutil.NewAddressPubKeyHash(bytes.Repeat([]byte{0x00}, 19), mainNetID); err == nil {
		t.Fatal("expected error for short pkHash")
	}
}

func TestHash160(t *testing.T) {
	// Known vector: Hash160 of the empty byte slice.
	want := "b472a266d0bd89c13706a4132ccfb16f7c3b9fcb"
	got := chainutil.Hash160(nil)
	if hexEncode(got) != want {
		t.Fatalf("got %s, want %s", hexEncode(got), want)
	}
}

func hexEncode(b []byte) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexdigits[c>>4]
		out[i*2+1] = hexdigits[c&0x0f]
	}
	return string(out)
}
