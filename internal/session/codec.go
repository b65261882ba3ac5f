package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/DukeRupert/handoff/internal/domain"
	"github.com/DukeRupert/handoff/internal/secret"
)

const (
	opSign   = "session.Sign"
	opVerify = "session.Verify"
)

// Codec signs and verifies session credentials. It holds only the immutable
// key and is safe for concurrent use.
type Codec struct {
	key secret.Key
}

// NewCodec creates a Codec bound to key.
func NewCodec(key secret.Key) *Codec {
	return &Codec{key: key}
}

// Sign serializes claim and appends its MAC.
//
// Bytes that would not survive a cookie value unquoted, the field separator
// and '%' itself are percent-encoded, so any email the identity provider
// vouches for can be carried. Empty fields are reported as
// domain.ErrInvalidClaim wrapped in an internal error.
func (c *Codec) Sign(claim domain.Claim) (string, error) {
	if claim.Email == "" {
		return "", domain.Internal(fmt.Errorf("%w: email is empty", domain.ErrInvalidClaim), opSign, "cannot serialize claim")
	}
	if claim.UserID == "" {
		return "", domain.Internal(fmt.Errorf("%w: user_id is empty", domain.ErrInvalidClaim), opSign, "cannot serialize claim")
	}

	value := strings.Join([]string{
		escapeField(claim.Email),
		escapeField(claim.UserID),
		strconv.FormatInt(claim.Exp, 10),
	}, FieldSeparator)

	return value + MACSeparator + c.mac(value), nil
}

// Verify authenticates a credential and parses it back into a claim.
//
// It does not compare the expiry against the clock; that is the caller's
// decision. Errors carry EMALFORMEDCREDENTIAL or EAUTHFAILED.
func (c *Codec) Verify(credential string) (domain.Claim, error) {
	idx := strings.LastIndex(credential, MACSeparator)
	if idx < 0 {
		return domain.Claim{}, domain.MalformedCredential(opVerify, "missing mac separator")
	}
	value, mac := credential[:idx], credential[idx+1:]

	// hmac.Equal is constant time and returns false on length mismatch.
	if !hmac.Equal([]byte(c.mac(value)), []byte(mac)) {
		return domain.Claim{}, domain.AuthenticationFailed(opVerify)
	}

	fields := strings.Split(value, FieldSeparator)
	if len(fields) != fieldCount {
		return domain.Claim{}, domain.MalformedCredential(opVerify, fmt.Sprintf("expected %d fields, got %d", fieldCount, len(fields)))
	}
	if fields[0] == "" || fields[1] == "" {
		return domain.Claim{}, domain.MalformedCredential(opVerify, "empty field")
	}

	email, err := url.PathUnescape(fields[0])
	if err != nil {
		return domain.Claim{}, domain.Wrap(err, domain.EMALFORMEDCREDENTIAL, opVerify, "invalid email encoding")
	}
	userID, err := url.PathUnescape(fields[1])
	if err != nil {
		return domain.Claim{}, domain.Wrap(err, domain.EMALFORMEDCREDENTIAL, opVerify, "invalid user_id encoding")
	}

	exp, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return domain.Claim{}, domain.Wrap(err, domain.EMALFORMEDCREDENTIAL, opVerify, "invalid exp")
	}

	return domain.Claim{
		Email:  email,
		UserID: userID,
		Exp:    exp,
	}, nil
}

// mac returns the lowercase hex HMAC-SHA256 of value.
func (c *Codec) mac(value string) string {
	h := hmac.New(sha256.New, c.key.Bytes())
	h.Write([]byte(value))
	return hex.EncodeToString(h.Sum(nil))
}

const upperHex = "0123456789ABCDEF"

// escapeField percent-encodes every byte outside the cookie-safe set.
// Plain ASCII emails pass through unchanged.
func escapeField(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if safeFieldByte(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0x0f])
	}
	return b.String()
}

// safeFieldByte allows visible ASCII minus the bytes net/http would strip or
// quote in a cookie value, the field separator and the escape byte.
func safeFieldByte(b byte) bool {
	if b <= 0x20 || b >= 0x7f {
		return false
	}
	switch b {
	case '"', ',', ';', '\\', '|', '%':
		return false
	}
	return true
}
