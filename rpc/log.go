// Copyright (c) 2024 The Glintchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import flog "github.com/glintchain/glintd/log"

var log flog.Logger

func init() {
	DisableLog()
}

func DisableLog() {
	log = flog.Disabled
}

func UseLogger(logger flog.Logger) {
	log = logger
}
