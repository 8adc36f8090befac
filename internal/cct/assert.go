//go:build !cctdebug

package cct

// debugChecks enables contract assertions on the insertion path. Build with
// -tags cctdebug to turn them on.
const debugChecks = false

func assertf(bool, string, ...interface{}) {}
