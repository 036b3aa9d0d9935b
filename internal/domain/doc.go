// Package domain defines core data models and interfaces shared across the app.
// It contains plain types (wire/state), contracts (interfaces) and the error
// taxonomy only.
//
// Errors fall into three families:
//
//   - CryptoError: key generation or cipher failure. Fatal to join; a failed
//     decrypt of one message only yields PlaceholderText.
//   - TransportError: the relay could not be reached or refused the call.
//     Retried on the next tick by the poll loops, surfaced for join and send,
//     logged for leave.
//   - ValidationError: malformed user input, rejected before any network or
//     crypto call.
package domain
