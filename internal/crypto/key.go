package crypto

import "crypto/rand"

// RandomKey returns n bytes from the system CSPRNG.
func RandomKey(n int) ([]byte, error) {
	k := make([]byte, n)
	if _, err := rand.Read(k); err != nil {
		return nil, err
	}
	return k, nil
}
