// Package message synchronises one session's conversation with the relay.
//
// The Engine runs two independent poll loops (messages and participants),
// decrypts what it can with the keys learned for each sender, and reconciles
// the relay's echo of our own sends with the optimistic copies appended at
// send time, so the local log never shows a message twice.
package message
