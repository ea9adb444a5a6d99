package keyexchange

import (
	"context"
	"crypto/rsa"
	"fmt"

	"cryptochat/internal/crypto"
	"cryptochat/internal/domain"
	"cryptochat/internal/protocol/wire"
	"cryptochat/internal/util/memzero"
)

// Config selects the construction a Cryptographer uses.
type Config struct {
	Suite   Suite
	RSABits int
}

// Cryptographer holds the key material of one session.
//
// It is not safe for concurrent use; the owning session actor is its only
// caller.
type Cryptographer struct {
	suite Suite
	bits  int

	priv      *rsa.PrivateKey
	ownPubDER []byte
	ownKey    []byte

	peerPub    *rsa.PublicKey
	peerPubDER []byte
	peerKey    []byte
}

// New returns a Cryptographer with no key material yet.
func New(cfg Config) *Cryptographer {
	if cfg.Suite == "" {
		cfg.Suite = DefaultSuite
	}
	if cfg.RSABits == 0 {
		cfg.RSABits = crypto.RSAKeyBits
	}
	return &Cryptographer{suite: cfg.Suite, bits: cfg.RSABits}
}

// Suite returns the configured suite.
func (c *Cryptographer) Suite() Suite { return c.suite }

// ExchangeKeys runs the key exchange over ch.
//
// Order: generate keys, send own public key, receive the peer's, send own
// symmetric key wrapped for the peer, receive and unwrap the peer's. Every
// send completes before the matching receive, so both peers may run this
// at the same time without deadlock. Any failure is a *KeyExchangeError.
func (c *Cryptographer) ExchangeKeys(ctx context.Context, ch wire.Channel) error {
	priv, err := crypto.GenerateRSA(c.bits)
	if err != nil {
		return stepErr("generate key pair", err)
	}
	der, err := crypto.MarshalPublicKey(&priv.PublicKey)
	if err != nil {
		return stepErr("encode public key", err)
	}
	own, err := crypto.RandomKey(c.suite.keyLen())
	if err != nil {
		return stepErr("generate symmetric key", err)
	}
	c.priv, c.ownPubDER, c.ownKey = priv, der, own

	if err := ch.Send(wire.Frame{Tag: wire.TagPublicKey, Payload: der}); err != nil {
		return stepErr("send public key", err)
	}

	f, err := receive(ctx, ch, wire.TagPublicKey)
	if err != nil {
		return stepErr("receive public key", err)
	}
	peerPub, err := crypto.ParsePublicKey(f.Payload)
	if err != nil {
		return stepErr("parse public key", err)
	}
	c.peerPub, c.peerPubDER = peerPub, f.Payload

	wrapped, err := crypto.WrapKey(peerPub, own)
	if err != nil {
		return stepErr("wrap symmetric key", err)
	}
	if err := ch.Send(wire.Frame{Tag: wire.TagSealedKey, Payload: wrapped}); err != nil {
		return stepErr("send symmetric key", err)
	}

	f, err = receive(ctx, ch, wire.TagSealedKey)
	if err != nil {
		return stepErr("receive symmetric key", err)
	}
	peerKey, err := crypto.UnwrapKey(priv, f.Payload)
	if err != nil {
		return stepErr("unwrap symmetric key", err)
	}
	if len(peerKey) != c.suite.keyLen() {
		memzero.Zero(peerKey)
		return stepErr("unwrap symmetric key",
			fmt.Errorf("peer key is %d bytes, %s needs %d (cipher suite mismatch?)", len(peerKey), c.suite, c.suite.keyLen()))
	}
	c.peerKey = peerKey
	return nil
}

func receive(ctx context.Context, ch wire.Channel, want wire.Tag) (wire.Frame, error) {
	f, err := ch.Receive(ctx)
	if err != nil {
		return wire.Frame{}, err
	}
	return wire.Expect(f, want)
}

// OwnFingerprint returns the fingerprint of the local public key.
func (c *Cryptographer) OwnFingerprint() (domain.Fingerprint, error) {
	if c.ownPubDER == nil {
		return "", ErrNotYetAvailable
	}
	return domain.Fingerprint(crypto.Fingerprint(c.ownPubDER)), nil
}

// PeerFingerprint returns the fingerprint of the peer's public key.
func (c *Cryptographer) PeerFingerprint() (domain.Fingerprint, error) {
	if c.peerPubDER == nil {
		return "", ErrNotYetAvailable
	}
	return domain.Fingerprint(crypto.Fingerprint(c.peerPubDER)), nil
}

// Seal encrypts plaintext under the local symmetric key.
func (c *Cryptographer) Seal(plaintext string) (Envelope, error) {
	if c.ownKey == nil || c.peerKey == nil {
		return Envelope{}, ErrNoSession
	}
	switch c.suite {
	case SuiteAEAD:
		ct, err := crypto.SealAEAD(c.ownKey, []byte(plaintext), nil)
		if err != nil {
			return Envelope{}, err
		}
		return Envelope{Ciphertext: ct}, nil
	default:
		ct, err := crypto.EncryptBlowfish(c.ownKey, []byte(plaintext))
		if err != nil {
			return Envelope{}, err
		}
		sig, err := crypto.Sign(c.priv, ct)
		if err != nil {
			return Envelope{}, err
		}
		return Envelope{Ciphertext: ct, Signature: sig}, nil
	}
}

// Open authenticates env against the peer and decrypts it. The signature
// is checked before any decryption is attempted.
func (c *Cryptographer) Open(env Envelope) (string, error) {
	if c.peerKey == nil {
		return "", ErrNoSession
	}
	switch c.suite {
	case SuiteAEAD:
		if len(env.Signature) != 0 {
			return "", ErrVerificationFailed
		}
		pt, err := crypto.OpenAEAD(c.peerKey, env.Ciphertext, nil)
		if err != nil {
			return "", ErrVerificationFailed
		}
		return string(pt), nil
	default:
		if err := crypto.Verify(c.peerPub, env.Ciphertext, env.Signature); err != nil {
			return "", ErrVerificationFailed
		}
		pt, err := crypto.DecryptBlowfish(c.peerKey, env.Ciphertext)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
		}
		return string(pt), nil
	}
}

// Destroy wipes the symmetric keys and drops the key pair.
func (c *Cryptographer) Destroy() {
	memzero.Zero(c.ownKey, c.peerKey)
	c.ownKey, c.peerKey = nil, nil
	c.priv = nil
}
