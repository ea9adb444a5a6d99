package crypto

import (
	stdcrypto "crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"fmt"
)

const (
	// RSAKeyBits is the default modulus size for session key pairs.
	RSAKeyBits = 2048
	// MinRSAKeyBits is the smallest modulus accepted from either side.
	MinRSAKeyBits = 2048
)

var (
	// ErrUnsupportedKey is returned when a peer public key is not RSA.
	ErrUnsupportedKey = errors.New("crypto: public key is not an RSA key")
	// ErrWeakKey is returned for RSA moduli below MinRSAKeyBits.
	ErrWeakKey = errors.New("crypto: RSA key is too short")
	// ErrBadSignature is returned when a signature does not verify.
	ErrBadSignature = errors.New("crypto: signature verification failed")
)

// GenerateRSA returns a fresh RSA key pair of the given size.
func GenerateRSA(bits int) (*rsa.PrivateKey, error) {
	if bits < MinRSAKeyBits {
		return nil, fmt.Errorf("%w: %d bits", ErrWeakKey, bits)
	}
	return rsa.GenerateKey(rand.Reader, bits)
}

// MarshalPublicKey encodes pub as PKIX DER.
func MarshalPublicKey(pub *rsa.PublicKey) ([]byte, error) {
	return x509.MarshalPKIXPublicKey(pub)
}

// ParsePublicKey decodes a PKIX DER RSA public key and enforces MinRSAKeyBits.
func ParsePublicKey(der []byte) (*rsa.PublicKey, error) {
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, err
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, ErrUnsupportedKey
	}
	if pub.N.BitLen() < MinRSAKeyBits {
		return nil, fmt.Errorf("%w: %d bits", ErrWeakKey, pub.N.BitLen())
	}
	return pub, nil
}

// WrapKey encrypts a symmetric key for pub with RSA-OAEP (SHA-256).
func WrapKey(pub *rsa.PublicKey, key []byte) ([]byte, error) {
	return rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, key, nil)
}

// UnwrapKey reverses WrapKey with the matching private key.
func UnwrapKey(priv *rsa.PrivateKey, wrapped []byte) ([]byte, error) {
	return rsa.DecryptOAEP(sha256.New(), nil, priv, wrapped, nil)
}

// Sign returns an RSASSA-PKCS1-v1_5 SHA-256 signature over msg.
func Sign(priv *rsa.PrivateKey, msg []byte) ([]byte, error) {
	digest := sha256.Sum256(msg)
	return rsa.SignPKCS1v15(rand.Reader, priv, stdcrypto.SHA256, digest[:])
}

// Verify checks sig over msg with pub.
func Verify(pub *rsa.PublicKey, msg, sig []byte) error {
	digest := sha256.Sum256(msg)
	if err := rsa.VerifyPKCS1v15(pub, stdcrypto.SHA256, digest[:], sig); err != nil {
		return ErrBadSignature
	}
	return nil
}
