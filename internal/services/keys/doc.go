// Package keys manages creation and destruction of per-session key material.
//
// A Manager generates one RSA-2048 OAEP/SHA-256 key pair and one independent
// AES-256-GCM session key when a participant joins, hands them out while the
// session lives, and wipes them on leave. Nothing here ever touches disk.
package keys
