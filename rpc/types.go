// Copyright (c) 2024 The Glintchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

// StatusResponse answers the operator's current-status query with just
// enough to judge node health at a glance.
type StatusResponse struct {
	TipHash        string `json:"tip_hash"`
	Height         int32  `json:"height"`
	CumulativeWork string `json:"cumulative_work"`
	MempoolSize    int    `json:"mempool_size"`
	Mining         bool   `json:"mining"`
	PeerCount      int32  `json:"peer_count"`
}

// AddPeerRequest asks the manager to dial addr, optionally as a permanent
// (auto-retrying) connection.
type AddPeerRequest struct {
	Addr      string `json:"addr"`
	Permanent bool   `json:"permanent"`
}

// SetPayToAddressRequest changes the address mining rewards are paid to.
type SetPayToAddressRequest struct {
	Addr string `json:"addr"`
}

// BalanceResponse answers a balance query: the total of every unspent
// output paying the requested address, immature coinbase outputs included.
type BalanceResponse struct {
	Addr    string `json:"addr"`
	Balance int64  `json:"balance"`
}

// SubmitTxRequest carries a raw transaction, hex-encoded in the canonical
// wire format, for direct mempool submission.
type SubmitTxRequest struct {
	Hex string `json:"hex"`
}

// SubmitBlockRequest carries a raw block, hex-encoded in the canonical
// wire format, for direct submission to the chain.
type SubmitBlockRequest struct {
	Hex string `json:"hex"`
}

// NotificationType identifies what kind of event a Notification carries.
type NotificationType string

const (
	NotifyTipChanged NotificationType = "tip_changed"
	NotifyRejection  NotificationType = "rejection"
	NotifyBanEvent   NotificationType = "ban_event"
)

// Notification is the envelope every status-stream subscriber receives.
type Notification struct {
	Type NotificationType `json:"type"`
	Data interface{}      `json:"data"`
}

// TipChangedEvent reports the chain's new best tip.
type TipChangedEvent struct {
	Hash           string `json:"hash"`
	Height         int32  `json:"height"`
	CumulativeWork string `json:"cumulative_work"`
}

// RejectionEvent reports a transaction or block that failed acceptance.
type RejectionEvent struct {
	Hash   string `json:"hash"`
	Kind   string `json:"kind"` // "tx" or "block"
	Reason string `json:"reason"`
}

// BanEvent reports a peer address crossing the ban threshold.
type BanEvent struct {
	Addr   string `json:"addr"`
	Reason string `json:"reason"`
}
