// Package handoff decodes the encrypted handoff token issued by the CMS login
// flow into an identity claim.
//
// Wire format:
//
//	base64url(iv) "." base64url(ciphertext) "." base64url(hmac)
//
// The ciphertext is AES-256-CBC with PKCS#7 padding over a JSON object
// holding at least email, user_id and exp. The MAC is HMAC-SHA256 over
// iv||ciphertext. Both primitives use the same 32-byte shared key.
//
// The MAC is always verified before any decryption is attempted.
package handoff

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/DukeRupert/handoff/internal/domain"
	"github.com/DukeRupert/handoff/internal/secret"
)

const (
	// Separator joins the three token segments.
	Separator = "."

	segmentCount = 3
	opDecode     = "handoff.Decode"
	opEncode     = "handoff.Encode"
)

// Codec decodes handoff tokens. It is immutable and safe for concurrent use.
type Codec struct {
	key secret.Key
	now func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec creates a Codec bound to key.
func NewCodec(key secret.Key, opts ...Option) *Codec {
	c := &Codec{
		key: key,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Decode authenticates, decrypts and parses token.
//
// Errors carry one of the domain codes EMALFORMEDTOKEN, EAUTHFAILED or
// ETOKENEXPIRED. An EAUTHFAILED error says nothing about where the MAC
// differed.
func (c *Codec) Decode(token string) (domain.Claim, error) {
	parts := strings.Split(token, Separator)
	if len(parts) != segmentCount {
		return domain.Claim{}, domain.MalformedToken(opDecode, fmt.Sprintf("expected %d segments, got %d", segmentCount, len(parts)))
	}

	iv, err := decodeSegment(parts[0])
	if err != nil {
		return domain.Claim{}, domain.Wrap(err, domain.EMALFORMEDTOKEN, opDecode, "invalid iv segment")
	}
	ciphertext, err := decodeSegment(parts[1])
	if err != nil {
		return domain.Claim{}, domain.Wrap(err, domain.EMALFORMEDTOKEN, opDecode, "invalid ciphertext segment")
	}
	mac, err := decodeSegment(parts[2])
	if err != nil {
		return domain.Claim{}, domain.Wrap(err, domain.EMALFORMEDTOKEN, opDecode, "invalid mac segment")
	}

	if !hmac.Equal(c.mac(iv, ciphertext), mac) {
		return domain.Claim{}, domain.AuthenticationFailed(opDecode)
	}

	plaintext, err := c.decrypt(iv, ciphertext)
	if err != nil {
		return domain.Claim{}, domain.Wrap(err, domain.EMALFORMEDTOKEN, opDecode, "decryption failed")
	}

	claim, err := parsePayload(plaintext)
	if err != nil {
		return domain.Claim{}, err
	}

	if claim.ExpiredAt(c.now()) {
		return domain.Claim{}, domain.TokenExpired(opDecode, "token expired")
	}

	return claim, nil
}

// Seal encrypts claim into a handoff token with a random IV.
//
// Production tokens are minted by the CMS; Seal exists for local tooling and
// tests.
func (c *Codec) Seal(claim domain.Claim) (string, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", domain.Internal(err, opEncode, "failed to generate iv")
	}
	return c.Encode(claim, iv)
}

// Encode encrypts claim into a handoff token using the given IV.
func (c *Codec) Encode(claim domain.Claim, iv []byte) (string, error) {
	if len(iv) != aes.BlockSize {
		return "", domain.Internal(nil, opEncode, fmt.Sprintf("iv must be %d bytes", aes.BlockSize))
	}

	body, err := json.Marshal(tokenPayload{
		Email:  claim.Email,
		UserID: userIDValue(claim.UserID),
		Exp:    claim.Exp,
	})
	if err != nil {
		return "", domain.Internal(err, opEncode, "failed to marshal payload")
	}

	block, err := aes.NewCipher(c.key.Bytes())
	if err != nil {
		return "", domain.Internal(err, opEncode, "failed to create cipher")
	}

	padded := pad(body, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return strings.Join([]string{
		base64.RawURLEncoding.EncodeToString(iv),
		base64.RawURLEncoding.EncodeToString(ciphertext),
		base64.RawURLEncoding.EncodeToString(c.mac(iv, ciphertext)),
	}, Separator), nil
}

// mac computes HMAC-SHA256(key, iv||ciphertext).
func (c *Codec) mac(iv, ciphertext []byte) []byte {
	h := hmac.New(sha256.New, c.key.Bytes())
	h.Write(iv)
	h.Write(ciphertext)
	return h.Sum(nil)
}

func (c *Codec) decrypt(iv, ciphertext []byte) ([]byte, error) {
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("iv is %d bytes, want %d", len(iv), aes.BlockSize)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a positive multiple of %d", len(ciphertext), aes.BlockSize)
	}

	block, err := aes.NewCipher(c.key.Bytes())
	if err != nil {
		return nil, err
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	return unpad(plaintext, aes.BlockSize)
}

// decodeSegment decodes one URL-safe base64 segment. Padding is optional,
// but when present it must be exactly what the segment length calls for.
// Line breaks, which the decoder would otherwise skip, are rejected.
func decodeSegment(s string) ([]byte, error) {
	if strings.ContainsAny(s, "\r\n") {
		return nil, fmt.Errorf("line break in segment")
	}

	unpadded := strings.TrimRight(s, "=")
	if padding := len(s) - len(unpadded); padding > 0 {
		if padding > 2 || len(s)%4 != 0 {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	if unpadded == "" {
		return nil, fmt.Errorf("empty segment")
	}

	b, err := base64.RawURLEncoding.Strict().DecodeString(unpadded)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// pad applies PKCS#7 padding.
func pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(bytes.Clone(b), bytes.Repeat([]byte{byte(n)}, n)...)
}

// unpad strips and validates PKCS#7 padding.
func unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("empty plaintext")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, fmt.Errorf("invalid padding")
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return b[:len(b)-n], nil
}

// tokenPayload is the JSON shape produced by the CMS. Unknown fields are
// ignored on decode.
type tokenPayload struct {
	Email  string `json:"email"`
	UserID any    `json:"user_id"`
	Exp    int64  `json:"exp"`
}

// userIDValue emits numeric IDs as JSON numbers, matching what the CMS sends.
func userIDValue(id string) any {
	if _, err := strconv.ParseInt(id, 10, 64); err == nil {
		return json.Number(id)
	}
	return id
}

type rawPayload struct {
	Email  *string         `json:"email"`
	UserID json.RawMessage `json:"user_id"`
	Exp    json.RawMessage `json:"exp"`
}

func parsePayload(plaintext []byte) (domain.Claim, error) {
	var raw rawPayload
	if err := json.Unmarshal(plaintext, &raw); err != nil {
		return domain.Claim{}, domain.Wrap(err, domain.EMALFORMEDTOKEN, opDecode, "invalid payload")
	}

	if raw.Email == nil || *raw.Email == "" {
		return domain.Claim{}, domain.MalformedToken(opDecode, "payload missing email")
	}

	userID, err := parseUserID(raw.UserID)
	if err != nil {
		return domain.Claim{}, domain.Wrap(err, domain.EMALFORMEDTOKEN, opDecode, "invalid user_id")
	}

	exp, err := parseExp(raw.Exp)
	if err != nil {
		return domain.Claim{}, domain.Wrap(err, domain.ETOKENEXPIRED, opDecode, "invalid exp")
	}

	return domain.Claim{
		Email:  *raw.Email,
		UserID: userID,
		Exp:    exp,
	}, nil
}

// parseUserID accepts a JSON integer or a non-empty JSON string.
func parseUserID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", fmt.Errorf("missing")
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		if s == "" {
			return "", fmt.Errorf("empty")
		}
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	id, err := n.Int64()
	if err != nil {
		return "", fmt.Errorf("not an integer: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

// parseExp accepts a JSON number of epoch seconds. Fractions are truncated
// toward the past.
func parseExp(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("missing")
	}
	if raw[0] == '"' {
		return 0, fmt.Errorf("not numeric")
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("not numeric: %w", err)
	}
	if exp, err := n.Int64(); err == nil {
		return exp, nil
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("not numeric")
	}
	return int64(math.Floor(f)), nil
}
