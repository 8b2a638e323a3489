// Package memzero wipes key material held in memory.
package memzero

import "runtime"

// Zero overwrites every buffer with zeros. The KeepAlive stops the compiler
// from treating the writes as dead stores.
func Zero(bufs ...[]byte) {
	for _, b := range bufs {
		clear(b)
		runtime.KeepAlive(b)
	}
}
