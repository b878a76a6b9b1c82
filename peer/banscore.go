// Copyright (c) 2024 The Glintchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"sync"
	"time"
)

// Ban-score thresholds and the decay/throttle policy built on top of them.
// None of this is consensus; it only governs which peers this node keeps
// talking to.
const (
	// BanThreshold is the score at or above which a peer is disconnected
	// and its address added to the ban list.
	BanThreshold = 100

	// ThrottleThreshold is the score at or above which an already
	// suspicious peer's messages are handled only after ThrottleDelay,
	// rather than immediately.
	ThrottleThreshold = 50

	// ThrottleDelay is the pause inserted before handling a message from
	// a peer at or above ThrottleThreshold.
	ThrottleDelay = 500 * time.Millisecond

	// BanDuration is how long a banned address is refused a new
	// connection before BanList forgets the ban.
	BanDuration = 24 * time.Hour

	// banScoreDecayPerMinute relaxes an idle peer's score over time, so
	// a single burst of minor misbehavior does not linger indefinitely.
	banScoreDecayPerMinute = 1
)

// Ban-score deltas for each category of misbehavior named in the node's
// error taxonomy. A malformed frame is cheap to produce and cheap to
// detect, so it costs little; a structurally invalid block already cost
// this node a full validation pass and is the strongest signal of hostile
// intent, so it costs the most.
const (
	BanScoreMalformedFrame = 10
	BanScoreInvalidTx      = 5
	BanScoreInvalidGetData = 2
	BanScoreInvalidBlock   = 100
	BanScoreInvalidHeaders = 100
)

// BanScore accumulates a single peer's misbehavior penalty, decaying over
// time so that good behavior after a lapse eventually erases it.
type BanScore struct {
	mu          sync.Mutex
	score       int
	lastUpdated time.Time
}

// Score returns the current score, after applying any decay owed since the
// last update or Add call.
func (b *BanScore) Score(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.decayTo(now)
	return b.score
}

// Add applies delta to the score (after decay) and returns the result.
func (b *BanScore) Add(now time.Time, delta int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.decayTo(now)
	b.score += delta
	if b.score < 0 {
		b.score = 0
	}
	return b.score
}

// ShouldBan reports whether the score has reached BanThreshold.
func (b *BanScore) ShouldBan(now time.Time) bool {
	return b.Score(now) >= BanThreshold
}

// ShouldThrottle reports whether the score has reached ThrottleThreshold.
func (b *BanScore) ShouldThrottle(now time.Time) bool {
	return b.Score(now) >= ThrottleThreshold
}

func (b *BanScore) decayTo(now time.Time) {
	if b.lastUpdated.IsZero() {
		b.lastUpdated = now
		return
	}
	if now.Before(b.lastUpdated) {
		// Clock moved backwards; don't manufacture decay from it.
		b.lastUpdated = now
		return
	}
	minutes := int(now.Sub(b.lastUpdated) / time.Minute)
	if minutes <= 0 {
		return
	}
	b.score -= minutes * banScoreDecayPerMinute
	if b.score < 0 {
		b.score = 0
	}
	b.lastUpdated = now
}

// BanList records addresses banned for reaching BanThreshold, so they stay
// refused across reconnect attempts within BanDuration instead of only for
// the lifetime of the connection that triggered the ban.
type BanList struct {
	mu      sync.Mutex
	expires map[string]time.Time
}

// NewBanList returns an empty BanList.
func NewBanList() *BanList {
	return &BanList{expires: make(map[string]time.Time)}
}

// Ban blocks addr from connecting until now+BanDuration.
func (l *BanList) Ban(addr string, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.expires[addr] = now.Add(BanDuration)
}

// IsBanned reports whether addr is currently blocked, forgetting the entry
// if its ban has since expired.
func (l *BanList) IsBanned(addr string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	until, ok := l.expires[addr]
	if !ok {
		return false
	}
	if now.After(until) {
		delete(l.expires, addr)
		return false
	}
	return true
}

// Unban removes any ban recorded against addr.
func (l *BanList) Unban(addr string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.expires, addr)
}
