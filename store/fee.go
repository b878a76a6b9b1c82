// Copyright (c) 2024 The Glintchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package store

import "github.com/glintchain/glintd/mempool"

// SaveFeeEstimator persists ef's decaying fee-rate histogram, so a restart
// doesn't throw away every observation made before the process stopped.
func (s *Store) SaveFeeEstimator(ef *mempool.FeeEstimator) error {
	return s.put(metaFeeEstimator, ef.Save())
}

// LoadFeeEstimator restores a previously saved fee estimator, or
// ErrNotFound if none was ever persisted.
func (s *Store) LoadFeeEstimator() (*mempool.FeeEstimator, error) {
	raw, err := s.get(metaFeeEstimator)
	if err != nil {
		return nil, err
	}
	return mempool.RestoreFeeEstimator(raw)
}
