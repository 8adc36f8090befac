//go:build cctdebug

package cct

import "fmt"

const debugChecks = true

func assertf(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
