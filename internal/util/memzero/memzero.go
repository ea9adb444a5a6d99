// Package memzero wipes key material held in byte slices.
package memzero

import "runtime"

// Zero overwrites every given buffer with zeros. Nil and empty buffers are
// skipped.
func Zero(bufs ...[]byte) {
	for _, b := range bufs {
		if len(b) == 0 {
			continue
		}
		clear(b)
		runtime.KeepAlive(b)
	}
}
