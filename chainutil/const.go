// Copyright (c) 2013-2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainutil

// These constants define various units used when describing a Glintchain
// monetary amount.
const (
	// GlitPerGlintCent is the number of glits in one glint cent.
	GlitPerGlintCent = 1e6

	// GlitPerGlint is the number of glits in one glint (1 GLT).
	GlitPerGlint = 1e8

	// MaxGlit is the maximum transaction amount allowed in glits: the
	// total subsidy producible under the halving schedule (50 GLT initial
	// subsidy, halving every 210,000 blocks) converges to 21,000,000 GLT.
	MaxGlit = 21e6 * GlitPerGlint
)
