// Package memzero wipes sensitive buffers once they are no longer needed.
package memzero

import (
	"crypto/rsa"
	"crypto/subtle"
	"math/big"
	"runtime"
)

// Zero overwrites b with zeros in a constant-time friendly way.
func Zero(b []byte) {
	if len(b) == 0 {
		return
	}
	zero := make([]byte, len(b))
	subtle.ConstantTimeCopy(1, b, zero)
	runtime.KeepAlive(&b)
}

// Int overwrites the magnitude words of x and sets it to zero.
func Int(x *big.Int) {
	if x == nil {
		return
	}
	words := x.Bits()
	for i := range words {
		words[i] = 0
	}
	x.SetInt64(0)
}

// RSA wipes the secret parts of priv. This is best-effort: the standard
// library keeps precomputed values we cannot reach.
func RSA(priv *rsa.PrivateKey) {
	if priv == nil {
		return
	}
	Int(priv.D)
	for _, p := range priv.Primes {
		Int(p)
	}
	Int(priv.Precomputed.Dp)
	Int(priv.Precomputed.Dq)
	Int(priv.Precomputed.Qinv)
}
