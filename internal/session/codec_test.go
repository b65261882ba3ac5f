package session

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/handoff/internal/domain"
	"github.com/DukeRupert/handoff/internal/secret"
)

var (
	testKey  = secret.MustParseHex(strings.Repeat("00", 32))
	otherKey = secret.MustParseHex(strings.Repeat("7f", 32))
)

func TestSignVerify_RoundTrip(t *testing.T) {
	codec := NewCodec(testKey)

	claims := []domain.Claim{
		{Email: "a@b.com", UserID: "7", Exp: 1_700_003_600},
		{Email: "first.last+tag@sub.example.co.uk", UserID: "u.42", Exp: 4_102_444_800},
		{Email: "x@y", UserID: "0", Exp: 1},
	}

	for _, claim := range claims {
		t.Run(claim.Email, func(t *testing.T) {
			credential, err := codec.Sign(claim)
			require.NoError(t, err)

			got, err := codec.Verify(credential)
			require.NoError(t, err)
			assert.Equal(t, claim, got)
		})
	}
}

func TestSign_WireFormat(t *testing.T) {
	credential, err := NewCodec(testKey).Sign(domain.Claim{Email: "a@b.com", UserID: "7", Exp: 1_700_003_600})
	require.NoError(t, err)

	idx := strings.LastIndex(credential, MACSeparator)
	require.Greater(t, idx, 0)
	assert.Equal(t, "a@b.com|7|1700003600", credential[:idx])

	mac := credential[idx+1:]
	assert.Len(t, mac, 64)
	assert.Equal(t, strings.ToLower(mac), mac)
}

func TestSign_Deterministic(t *testing.T) {
	codec := NewCodec(testKey)
	claim := domain.Claim{Email: "a@b.com", UserID: "7", Exp: 1_700_003_600}

	a, err := codec.Sign(claim)
	require.NoError(t, err)
	b, err := codec.Sign(claim)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSign_EscapesUnsafeBytes(t *testing.T) {
	codec := NewCodec(testKey)

	tests := []struct {
		name  string
		claim domain.Claim
		value string
	}{
		{name: "separator in email", claim: domain.Claim{Email: "a|b@c.com", UserID: "7", Exp: 1}, value: "a%7Cb@c.com|7|1"},
		{name: "separator in user id", claim: domain.Claim{Email: "a@b.com", UserID: "7|8", Exp: 1}, value: "a@b.com|7%7C8|1"},
		{name: "quoted local part", claim: domain.Claim{Email: `"john doe"@example.com`, UserID: "7", Exp: 1}, value: "%22john%20doe%22@example.com|7|1"},
		{name: "semicolon", claim: domain.Claim{Email: "a;b@c.com", UserID: "7", Exp: 1}, value: "a%3Bb@c.com|7|1"},
		{name: "non ascii", claim: domain.Claim{Email: "josé@café.com", UserID: "7", Exp: 1}, value: "jos%C3%A9@caf%C3%A9.com|7|1"},
		{name: "control byte", claim: domain.Claim{Email: "a@b.com\n", UserID: "7", Exp: 1}, value: "a@b.com%0A|7|1"},
		{name: "literal percent", claim: domain.Claim{Email: "100%@b.com", UserID: "7", Exp: 1}, value: "100%25@b.com|7|1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			credential, err := codec.Sign(tt.claim)
			require.NoError(t, err)

			idx := strings.LastIndex(credential, MACSeparator)
			assert.Equal(t, tt.value, credential[:idx])

			got, err := codec.Verify(credential)
			require.NoError(t, err)
			assert.Equal(t, tt.claim, got)
		})
	}
}

func TestSign_CookieSafeOutput(t *testing.T) {
	credential, err := NewCodec(testKey).Sign(domain.Claim{Email: "\"ä; ,\\|%\x00\x7f\xff@x", UserID: "id 1", Exp: 1})
	require.NoError(t, err)

	for i := 0; i < len(credential); i++ {
		c := credential[i]
		assert.True(t, c > 0x20 && c < 0x7f && !strings.ContainsRune(`";,\`, rune(c)),
			"byte 0x%02x at %d is not cookie safe", c, i)
	}
}

func TestSign_RejectsEmptyFields(t *testing.T) {
	codec := NewCodec(testKey)

	for _, claim := range []domain.Claim{
		{Email: "", UserID: "7", Exp: 1},
		{Email: "a@b.com", UserID: "", Exp: 1},
	} {
		_, err := codec.Sign(claim)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrInvalidClaim))
		assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
	}
}

func TestVerify_Malformed(t *testing.T) {
	codec := NewCodec(testKey)

	// signedValue produces a correctly authenticated credential over any
	// value, so structural checks after the MAC can be reached.
	signedValue := func(value string) string {
		return value + MACSeparator + codec.mac(value)
	}

	tests := []struct {
		name       string
		credential string
		wantCode   string
	}{
		{name: "empty", credential: "", wantCode: domain.EMALFORMEDCREDENTIAL},
		{name: "no separator", credential: "abcdef", wantCode: domain.EMALFORMEDCREDENTIAL},
		{name: "two fields", credential: signedValue("a@b.com|7"), wantCode: domain.EMALFORMEDCREDENTIAL},
		{name: "four fields", credential: signedValue("a@b.com|7|1|x"), wantCode: domain.EMALFORMEDCREDENTIAL},
		{name: "non numeric exp", credential: signedValue("a@b.com|7|soon"), wantCode: domain.EMALFORMEDCREDENTIAL},
		{name: "empty exp", credential: signedValue("a@b.com|7|"), wantCode: domain.EMALFORMEDCREDENTIAL},
		{name: "empty email", credential: signedValue("|7|1"), wantCode: domain.EMALFORMEDCREDENTIAL},
		{name: "bad escape in email", credential: signedValue("a%zz@b.com|7|1"), wantCode: domain.EMALFORMEDCREDENTIAL},
		{name: "truncated escape in user id", credential: signedValue("a@b.com|7%2|1"), wantCode: domain.EMALFORMEDCREDENTIAL},
		{name: "mac only", credential: ".deadbeef", wantCode: domain.EAUTHFAILED},
		{name: "unsigned value", credential: "a@b.com|7|1700003600.", wantCode: domain.EAUTHFAILED},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Verify(tt.credential)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, domain.ErrorCode(err))
		})
	}
}

func TestVerify_WrongKey(t *testing.T) {
	credential, err := NewCodec(otherKey).Sign(domain.Claim{Email: "a@b.com", UserID: "7", Exp: 1})
	require.NoError(t, err)

	_, err = NewCodec(testKey).Verify(credential)
	assert.Equal(t, domain.EAUTHFAILED, domain.ErrorCode(err))
}

func TestVerify_MACComparison(t *testing.T) {
	codec := NewCodec(testKey)
	credential, err := codec.Sign(domain.Claim{Email: "a@b.com", UserID: "7", Exp: 1_700_003_600})
	require.NoError(t, err)

	idx := strings.LastIndex(credential, MACSeparator)
	value, mac := credential[:idx], credential[idx+1:]

	swap := func(s string, i int) string {
		b := []byte(s)
		if b[i] == '0' {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
		return string(b)
	}

	tests := []struct {
		name string
		mac  string
	}{
		{name: "first char differs", mac: swap(mac, 0)},
		{name: "last char differs", mac: swap(mac, len(mac)-1)},
		{name: "all zero", mac: strings.Repeat("0", len(mac))},
		{name: "all f", mac: strings.Repeat("f", len(mac))},
		{name: "shorter", mac: mac[:len(mac)-2]},
		{name: "longer", mac: mac + "00"},
		{name: "empty", mac: ""},
		{name: "uppercase", mac: strings.ToUpper(mac)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Verify(value + MACSeparator + tt.mac)
			require.Error(t, err)
			assert.Equal(t, domain.EAUTHFAILED, domain.ErrorCode(err))
		})
	}
}

func TestVerify_SingleBitFlips(t *testing.T) {
	codec := NewCodec(testKey)
	credential, err := codec.Sign(domain.Claim{Email: "jane.doe@example.com", UserID: "1234", Exp: 1_700_003_600})
	require.NoError(t, err)

	sep := strings.LastIndex(credential, MACSeparator)

	for i := 0; i < len(credential); i++ {
		for bit := 0; bit < 8; bit++ {
			b := []byte(credential)
			b[i] ^= 1 << bit
			flipped := string(b)

			var got domain.Claim
			var verr error
			require.NotPanics(t, func() { got, verr = codec.Verify(flipped) })
			require.Error(t, verr, "flip at byte %d bit %d verified as %+v", i, bit, got)

			if i != sep {
				assert.Equal(t, domain.EAUTHFAILED, domain.ErrorCode(verr), "flip at byte %d bit %d", i, bit)
			}
		}
	}
}
