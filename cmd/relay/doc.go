// Package main runs the in-memory HTTP relay argoya clients talk to during
// development and tests.
//
// The relay keeps active sessions, a bounded broadcast log and the key
// directory in memory; everything is lost on exit. It never sees plaintext
// or private keys, only ciphertext, public keys and wrapped session keys.
//
// See package argoya/internal/relay for the HTTP API.
//
// Flags
//
//	--addr          listen address (default :8080)
//	--ttl           inactivity before a session expires (default 30m)
//	--sweep         expiry sweep interval (default 5m)
//	--max-messages  broadcast messages retained (default 1000)
//	--log-level     zerolog level (default info)
//	--pretty        console log format instead of JSON
package main
