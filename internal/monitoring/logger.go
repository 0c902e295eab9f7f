package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced with SetLogger; tests typically mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// Debug gates per-tick trace logging. Off by default because the monitor
// produces two lines per second when it is on.
var Debug bool

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Debugf logs through Logf only when Debug is enabled.
func Debugf(format string, v ...interface{}) {
	if Debug {
		Logf(format, v...)
	}
}
