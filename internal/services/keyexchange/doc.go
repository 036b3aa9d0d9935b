// Package keyexchange lets participants read each other's messages.
//
// Every client encrypts with its own AES-256 session key. To make those
// messages readable by the group, each client publishes its RSA-OAEP public
// key to the relay, wraps its session key for every other participant's
// public key (a key envelope), and unwraps the envelopes addressed to it into
// the session KeyRing. Only public keys and wrapped keys leave the client.
//
// Messages sent before a peer's envelope arrives stay unreadable for that
// peer and show as the placeholder.
package keyexchange
