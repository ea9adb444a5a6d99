// Package crypto exposes the minimal primitives used by cryptochat.
//
// Contents
//
//   - RSA key generation, PKIX encoding, OAEP key wrapping and PKCS #1 v1.5
//     signatures (GenerateRSA, MarshalPublicKey, ParsePublicKey, WrapKey,
//     UnwrapKey, Sign, Verify)
//   - Blowfish-CBC with PKCS #5 padding for the legacy message suite
//     (EncryptBlowfish, DecryptBlowfish)
//   - ChaCha20-Poly1305 for the AEAD message suite (SealAEAD, OpenAEAD)
//   - Random symmetric keys (RandomKey)
//   - Short public-key fingerprints for display (Fingerprint)
//
// # Notes
//
// Keys are generated per session and never persisted. Callers should wipe
// symmetric keys with memzero.Zero when a session ends.
package crypto
