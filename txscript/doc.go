// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package txscript implements the glintd transaction script language.

The script language used here is a small, intentionally restricted subset
of the stack-based, FORTH-like language described at
https://en.bitcoin.it/wiki/Script. The following only serves as a quick
overview to provide information on how to use the package.

This package provides data structures and functions to parse and execute
those transaction scripts.

# Script Overview

Scripts consist of a handful of opcodes that fall into three categories:
pushing data onto the stack, the few opcodes needed to express a
pay-to-pubkey-hash spend condition, and OP_RETURN. There is no arithmetic,
no conditional branching, and no looping construct of any kind — scripts
are processed strictly left to right.

Nearly every script is of one standard form: a spender providing a public
key and a signature which proves ownership of the associated private key.
This information is used to prove the spender is authorized to perform the
transaction. An output may alternatively carry an OP_RETURN script, which
fails immediately and marks the output as permanently unspendable —
useful for committing small amounts of data to the chain.

# Errors

Errors returned by this package are of type txscript.Error. This allows the
caller to programmatically determine the specific error by examining the
ErrorCode field of the type asserted txscript.Error while still providing rich
error messages with contextual information. A convenience function named
IsErrorCode is also provided to allow callers to easily check for a specific
error code. See ErrorCode in the package documentation for a full list.
*/
package txscript
