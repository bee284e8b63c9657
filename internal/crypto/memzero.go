package crypto

import (
	"runtime"

	"qchat/internal/domain"
)

// Wipe zeroes b in place, best effort.
//
//go:noinline
func Wipe(b []byte) {
	clear(b)
	runtime.KeepAlive(b)
}

// WipeKey drops the quantum key from a session context. Go strings are
// immutable, so this only releases the reference held by sess.
func WipeKey(sess *domain.SessionContext) {
	if sess == nil {
		return
	}
	sess.QuantumKey = ""
}
