// Copyright (c) 2013, 2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainutil

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// AmountUnit describes a method of converting an Amount to something other
// than the base unit of a glint.  The value is the exponent component of
// the decadic multiple to convert from an amount in glint to an amount
// counted in units.
type AmountUnit int

const (
	AmountMegaGLT  AmountUnit = 6
	AmountKiloGLT  AmountUnit = 3
	AmountGLT      AmountUnit = 0
	AmountMilliGLT AmountUnit = -3
	AmountMicroGLT AmountUnit = -6
	AmountGlit     AmountUnit = -8
)

func (u AmountUnit) String() string {
	switch u {
	case AmountMegaGLT:
		return "MGLT"
	case AmountKiloGLT:
		return "kGLT"
	case AmountGLT:
		return "GLT"
	case AmountMilliGLT:
		return "mGLT"
	case AmountMicroGLT:
		return "μGLT"
	case AmountGlit:
		return "Glit"
	default:
		return "1e" + strconv.FormatInt(int64(u), 10) + " GLT"
	}
}

// Amount represents the base Glintchain monetary unit (a "glit"), equal to
// 1e-8 of a glint.  Consensus code exclusively uses this integer type;
// subsidy and fee arithmetic never uses floating point.
type Amount int64

func round(f float64) Amount {
	if f < 0 {
		return Amount(f - 0.5)
	}
	return Amount(f + 0.5)
}

// NewAmount creates an Amount from a floating point value representing an
// amount in glint.  It is for human-entry conversion (e.g. CLI/RPC) only —
// never used on a consensus code path.
func NewAmount(f float64) (Amount, error) {
	switch {
	case math.IsNaN(f), math.IsInf(f, 1), math.IsInf(f, -1):
		return 0, errors.New("invalid glintchain amount")
	}
	return round(f * GlitPerGlint), nil
}

// ToUnit converts a monetary amount counted in glits to a floating point
// value representing an amount of the given unit.
func (a Amount) ToUnit(u AmountUnit) float64 {
	return float64(a) / math.Pow10(int(u+8))
}

// ToGLT is the equivalent of calling ToUnit with AmountGLT.
func (a Amount) ToGLT() float64 {
	return a.ToUnit(AmountGLT)
}

// Format formats a monetary amount counted in glits as a string for a
// given unit.
func (a Amount) Format(u AmountUnit) string {
	units := " " + u.String()
	formatted := strconv.FormatFloat(a.ToUnit(u), 'f', -int(u+8), 64)

	if u == AmountGLT && strings.Contains(formatted, ".") {
		return fmt.Sprintf("%.8f%s", a.ToUnit(u), units)
	}
	return formatted + units
}

// String is the equivalent of calling Format with AmountGLT.
func (a Amount) String() string {
	return a.Format(AmountGLT)
}

// MulF64 multiplies an Amount by a floating point value.  Used only by
// non-consensus helpers (fee estimation display, RPC); consensus fee math
// stays in integer glits.
func (a Amount) MulF64(f float64) Amount {
	return round(float64(a) * f)
}
