// Package crypto exposes the minimal primitives used by argoya.
//
// Contents
//
//   - AES-256-GCM message sealing with a fresh 96-bit nonce per call, encoded
//     as base64(nonce || ciphertext || tag) (Encrypt, Decrypt)
//   - RSA-2048 OAEP/SHA-256 key pairs used to wrap session keys for peers
//     (GenerateRSA, MarshalPublicKey, ParsePublicKey, WrapKey, UnwrapKey)
//   - PBKDF2-HMAC-SHA-256 password derivation (DeriveKey)
//   - Short public-key fingerprints and anonymous hashes for display
//     (Fingerprint, AnonymousHash, HashData)
//
// # Notes
//
// Decrypt never returns an error: any failure, including malformed input,
// a wrong key or a broken authentication tag, yields ("", false). Callers
// substitute a placeholder and move on.
package crypto
