package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/blowfish"
)

// BlowfishKeyBytes is the 448-bit key size of the legacy suite.
const BlowfishKeyBytes = 56

var (
	// ErrCiphertextSize is returned for ciphertexts that cannot be CBC blocks.
	ErrCiphertextSize = errors.New("crypto: ciphertext is not a whole number of blocks")
	// ErrBadPadding is returned when PKCS #5 padding is invalid after decryption.
	ErrBadPadding = errors.New("crypto: invalid padding")
)

// EncryptBlowfish encrypts plaintext with Blowfish-CBC under key.
// The output is iv || ciphertext.
func EncryptBlowfish(key, plaintext []byte) ([]byte, error) {
	block, err := blowfish.NewCipher(key)
	if err != nil {
		return nil, err
	}
	padded := pad(plaintext, blowfish.BlockSize)

	out := make([]byte, blowfish.BlockSize+len(padded))
	iv := out[:blowfish.BlockSize]
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[blowfish.BlockSize:], padded)
	return out, nil
}

// DecryptBlowfish reverses EncryptBlowfish.
func DecryptBlowfish(key, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 2*blowfish.BlockSize || len(ciphertext)%blowfish.BlockSize != 0 {
		return nil, ErrCiphertextSize
	}
	block, err := blowfish.NewCipher(key)
	if err != nil {
		return nil, err
	}
	iv, body := ciphertext[:blowfish.BlockSize], ciphertext[blowfish.BlockSize:]
	out := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, body)
	return unpad(out, blowfish.BlockSize)
}

func pad(b []byte, size int) []byte {
	n := size - len(b)%size
	out := make([]byte, len(b)+n)
	copy(out, b)
	for i := len(b); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

func unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 {
		return nil, ErrBadPadding
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, ErrBadPadding
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, ErrBadPadding
		}
	}
	return b[:len(b)-n], nil
}
