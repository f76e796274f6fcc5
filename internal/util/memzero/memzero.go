// Package memzero wipes secret byte slices. Wiping is best effort: Go may
// already have copied the bytes elsewhere.
package memzero

import "runtime"

// Zero overwrites b with zeros.
//
//go:noinline
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

// ZeroAll wipes each slice in bs.
func ZeroAll(bs ...[]byte) {
	for _, b := range bs {
		Zero(b)
	}
}
