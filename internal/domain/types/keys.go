package types

import "crypto/rsa"

// SessionKeySize is the length in bytes of the AES-256-GCM session key.
const SessionKeySize = 32

// KeyMaterial is the per-session key set. It lives in process memory only.
//
// Private is provisioned for the key exchange: it unwraps the session keys
// peers send us. Only SessionKey encrypts messages.
type KeyMaterial struct {
	Private    *rsa.PrivateKey
	SessionKey [SessionKeySize]byte
}

// PeerKey is a participant's published RSA-OAEP public key.
//
// PublicKey is the base64 PKIX DER encoding.
type PeerKey struct {
	Name      DisplayName `json:"username"`
	PublicKey string      `json:"public_key"`
}

// KeyEnvelope carries a sender's session key wrapped for one recipient.
type KeyEnvelope struct {
	ID         string      `json:"id"`
	Sender     DisplayName `json:"sender"`
	Recipient  DisplayName `json:"recipient"`
	WrappedKey string      `json:"wrapped_key"`
}
