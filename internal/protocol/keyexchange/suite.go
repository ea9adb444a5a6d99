package keyexchange

import (
	"fmt"

	"cryptochat/internal/crypto"
)

// Suite names the symmetric construction used for messages.
type Suite string

const (
	// SuiteLegacy encrypts with Blowfish-CBC and signs the ciphertext with RSA.
	SuiteLegacy Suite = "blowfish-rsa"
	// SuiteAEAD seals with ChaCha20-Poly1305 and carries no separate signature.
	SuiteAEAD Suite = "chacha20poly1305"
)

// DefaultSuite keeps wire compatibility with legacy peers.
const DefaultSuite = SuiteLegacy

// ParseSuite validates a configured suite name. The empty string selects
// DefaultSuite.
func ParseSuite(s string) (Suite, error) {
	switch Suite(s) {
	case "":
		return DefaultSuite, nil
	case SuiteLegacy, SuiteAEAD:
		return Suite(s), nil
	}
	return "", fmt.Errorf("keyexchange: unknown cipher suite %q", s)
}

func (s Suite) keyLen() int {
	if s == SuiteAEAD {
		return crypto.AEADKeyBytes
	}
	return crypto.BlowfishKeyBytes
}

func (s Suite) String() string { return string(s) }
