// Copyright (c) 2016 The btcsuite developers
// Copyright (c) 2024 The Flokicoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package connmgr implements a generic Glintchain network connection manager.

# Connection Manager Overview

Connection Manager maintains a set number of outbound connection requests,
retrying permanent ones with exponential backoff, sources replacement
addresses for the others through Config.GetNewAddress, and hands
connections accepted on configured listeners to Config.OnAccept. It does
not ban peers, cap the number of inbound connections, or perform tor
lookups.
*/
package connmgr
