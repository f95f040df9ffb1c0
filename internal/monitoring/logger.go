// Package monitoring provides the package-level diagnostic logger shared
// by the storage and API layers.
package monitoring

import "log"

// Logf is the diagnostic logger. It defaults to log.Printf and may be
// swapped with SetLogger; tests typically mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
