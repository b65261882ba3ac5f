// Package secret holds the process-wide symmetric key shared with the
// identity provider.
//
// The key is parsed once at startup and never mutated. Both the handoff token
// codec and the session codec receive it by value, so there is no global state
// to guard.
package secret

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// KeySize is the required key length in bytes (AES-256 / HMAC-SHA256).
const KeySize = 32

var (
	// ErrMissingKey is returned when no key material was configured.
	ErrMissingKey = errors.New("secret: key is missing")

	// ErrKeyLength is returned when the decoded key is not KeySize bytes.
	ErrKeyLength = errors.New("secret: key must be 32 bytes (64 hex chars)")

	// ErrInvalidHex is returned when the key is not valid hex. The decoder's
	// own error names the offending byte, so it is not wrapped.
	ErrInvalidHex = errors.New("secret: invalid hex")
)

// Key is an immutable 32-byte symmetric key.
type Key struct {
	b [KeySize]byte
}

// ParseHex decodes a hex-encoded key. Surrounding whitespace is ignored.
func ParseHex(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Key{}, ErrMissingKey
	}

	raw, err := hex.DecodeString(s)
	if err != nil {
		return Key{}, ErrInvalidHex
	}
	return FromBytes(raw)
}

// FromBytes copies raw into a Key.
func FromBytes(raw []byte) (Key, error) {
	if len(raw) != KeySize {
		return Key{}, fmt.Errorf("%w: got %d bytes", ErrKeyLength, len(raw))
	}
	var k Key
	copy(k.b[:], raw)
	return k, nil
}

// UnmarshalText implements encoding.TextUnmarshaler so a Key can be
// populated straight from the environment.
func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := ParseHex(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MustParseHex is ParseHex for tests and tooling. It panics on error.
func MustParseHex(s string) Key {
	k, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return k
}

// Bytes returns a copy of the key material.
func (k Key) Bytes() []byte {
	out := make([]byte, KeySize)
	copy(out, k.b[:])
	return out
}

// IsZero reports whether the key was never initialized.
func (k Key) IsZero() bool {
	return k == Key{}
}

// String never prints key material.
func (k Key) String() string {
	return "secret.Key([REDACTED])"
}

// GoString keeps %#v from leaking the key into logs.
func (k Key) GoString() string {
	return k.String()
}
