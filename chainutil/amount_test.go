// Copyright (c) 2013, 2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainutil_test

import (
	"math"
	"testing"

	"github.com/glintchain/glintd/chainutil"
)

func TestAmountCreation(t *testing.T) {
	tests := []struct {
		name    string
		amount  float64
		valid   bool
		expect  chainutil.Amount
	}{
		{"zero", 0, true, 0},
		{"one glint", 1, true, chainutil.Amount(chainutil.GlitPerGlint)},
		{"1.00000001 GLT", 1.00000001, true, chainutil.Amount(chainutil.GlitPerGlint + 1)},
		{"0.00000001 GLT", 0.00000001, true, chainutil.Amount(1)},
		{"NaN", math.NaN(), false, 0},
		{"+Inf", math.Inf(1), false, 0},
		{"-Inf", math.Inf(-1), false, 0},
	}

	for _, test := range tests {
		a, err := chainutil.NewAmount(test.amount)
		switch {
		case test.valid && err != nil:
			t.Errorf("%s: unexpected error: %v", test.name, err)
		case !test.valid && err == nil:
			t.Errorf("%s: expected error, got none", test.name)
		case test.valid && a != test.expect:
			t.Errorf("%s: got %v, want %v", test.name, a, test.expect)
		}
	}
}

func TestAmountUnitConversions(t *testing.T) {
	amount := chainutil.Amount(44 * chainutil.GlitPerGlint / 100000) // 0.00044 GLT

	tests := []struct {
		unit    chainutil.AmountUnit
		want    float64
		wantStr string
	}{
		{chainutil.AmountMegaGLT, 0.00000000044, "0.00000000044 MGLT"},
		{chainutil.AmountKiloGLT, 0.00000044, "0.00000044 kGLT"},
		{chainutil.AmountGLT, 0.00044, "0.00044000 GLT"},
		{chainutil.AmountMilliGLT, 0.44, "0.44 mGLT"},
		{chainutil.AmountMicroGLT, 440, "440 μGLT"},
		{chainutil.AmountGlit, 44000, "44000 Glit"},
	}

	for _, test := range tests {
		got := amount.ToUnit(test.unit)
		if got != test.want {
			t.Errorf("ToUnit(%v): got %v, want %v", test.unit, got, test.want)
		}
	}
}

func TestAmountString(t *testing.T) {
	amount := chainutil.Amount(chainutil.GlitPerGlint + 1)
	if got := amount.String(); got != "1.00000001 GLT" {
		t.Errorf("got %q, want %q", got, "1.00000001 GLT")
	}
}

func TestAmountMulF64(t *testing.T) {
	amount := chainutil.Amount(chainutil.GlitPerGlint)
	if got := amount.MulF64(0.5); got != chainutil.Amount(chainutil.GlitPerGlint/2) {
		t.Errorf("got %v, want %v", got, chainutil.GlitPerGlint/2)
	}
}
