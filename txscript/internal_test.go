// Copyright (c) 2016-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "fmt"

// tstCheckScriptError ensures the type of two passed errors are of the
// same type (either both nil or both txscript.Error with the same
// ErrorCode) and returns a descriptive error if not.
func tstCheckScriptError(gotErr, wantErr error) error {
	if wantErr == nil {
		if gotErr != nil {
			return fmt.Errorf("unexpected error - got %v, want none", gotErr)
		}
		return nil
	}
	if gotErr == nil {
		return fmt.Errorf("succeeded when error was expected - want %v", wantErr)
	}

	gotErrorCode, ok := gotErr.(Error)
	if !ok {
		return fmt.Errorf("gotErr is not a txscript.Error - got %T", gotErr)
	}
	wantErrorCode, ok := wantErr.(Error)
	if !ok {
		return fmt.Errorf("wantErr is not a txscript.Error - got %T", wantErr)
	}
	if gotErrorCode.ErrorCode != wantErrorCode.ErrorCode {
		return fmt.Errorf("mismatched error code - got %v, want %v",
			gotErrorCode.ErrorCode, wantErrorCode.ErrorCode)
	}

	return nil
}
