package keyexchange

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyExchange matches every *KeyExchangeError.
	ErrKeyExchange = errors.New("keyexchange: key exchange failed")
	// ErrNotYetAvailable is returned for fingerprints requested too early.
	ErrNotYetAvailable = errors.New("keyexchange: key not yet available")
	// ErrVerificationFailed means the envelope was not produced by the peer.
	ErrVerificationFailed = errors.New("keyexchange: message verification failed")
	// ErrDecryptionFailed means a verified envelope did not decrypt.
	ErrDecryptionFailed = errors.New("keyexchange: message decryption failed")
	// ErrNoSession is returned by Seal and Open before a successful exchange.
	ErrNoSession = errors.New("keyexchange: keys have not been exchanged")
)

// KeyExchangeError records the step at which ExchangeKeys failed.
type KeyExchangeError struct {
	Step string
	Err  error
}

func (e *KeyExchangeError) Error() string {
	return fmt.Sprintf("keyexchange: %s: %v", e.Step, e.Err)
}

func (e *KeyExchangeError) Unwrap() error { return e.Err }

// Is reports a match against ErrKeyExchange.
func (e *KeyExchangeError) Is(target error) bool { return target == ErrKeyExchange }

func stepErr(step string, err error) error {
	return &KeyExchangeError{Step: step, Err: err}
}
