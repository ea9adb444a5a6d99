package crypto

import (
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// AEADKeyBytes is the key size of the AEAD suite.
	AEADKeyBytes = chacha20poly1305.KeySize
	// NonceBytes is the nonce prefix length of sealed AEAD messages.
	NonceBytes = chacha20poly1305.NonceSize
)

// ErrOpen is returned when an AEAD message fails authentication.
var ErrOpen = errors.New("crypto: message authentication failed")

// SealAEAD encrypts and authenticates plaintext under key.
// The output is nonce || ciphertext || tag.
func SealAEAD(key, plaintext, ad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, NonceBytes, NonceBytes+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, ad), nil
}

// OpenAEAD authenticates and decrypts a message produced by SealAEAD.
func OpenAEAD(key, sealed, ad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < NonceBytes+aead.Overhead() {
		return nil, ErrOpen
	}
	pt, err := aead.Open(nil, sealed[:NonceBytes], sealed[NonceBytes:], ad)
	if err != nil {
		return nil, ErrOpen
	}
	return pt, nil
}
