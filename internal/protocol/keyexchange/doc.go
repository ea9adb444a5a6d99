// Package keyexchange turns a framed channel into a channel of
// authenticated plaintext.
//
// Both peers run ExchangeKeys symmetrically: each sends a fresh RSA public
// key, receives the peer's, then sends its own symmetric key wrapped under
// the peer's public key. Afterwards Seal encrypts under the local key and
// Open decrypts under the peer's key. All key material lives for a single
// session and is never persisted.
package keyexchange
