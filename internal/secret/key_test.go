package secret

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHex(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "zero key", input: strings.Repeat("00", 32)},
		{name: "surrounding whitespace", input: "  " + strings.Repeat("ab", 32) + "\n"},
		{name: "empty", input: "", wantErr: ErrMissingKey},
		{name: "whitespace only", input: "   ", wantErr: ErrMissingKey},
		{name: "too short", input: strings.Repeat("00", 16), wantErr: ErrKeyLength},
		{name: "too long", input: strings.Repeat("00", 33), wantErr: ErrKeyLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHex(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestParseHex_InvalidHex(t *testing.T) {
	_, err := ParseHex(strings.Repeat("zz", 32))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidHex)
	assert.NotContains(t, err.Error(), "z", "the offending byte must not be echoed")
}

func TestKey_UnmarshalText(t *testing.T) {
	var k Key
	require.NoError(t, k.UnmarshalText([]byte(strings.Repeat("11", 32))))
	assert.Equal(t, MustParseHex(strings.Repeat("11", 32)), k)

	var bad Key
	assert.ErrorIs(t, bad.UnmarshalText([]byte("abcd")), ErrKeyLength)
	assert.True(t, bad.IsZero(), "failed unmarshal leaves the key untouched")
}

func TestKey_BytesReturnsCopy(t *testing.T) {
	k := MustParseHex(strings.Repeat("11", 32))

	b := k.Bytes()
	require.Len(t, b, KeySize)
	b[0] = 0xff

	assert.Equal(t, byte(0x11), k.Bytes()[0], "mutating the copy must not change the key")
}

func TestKey_NeverFormatsMaterial(t *testing.T) {
	k := MustParseHex(strings.Repeat("ab", 32))

	for _, s := range []string{
		k.String(),
		fmt.Sprintf("%v", k),
		fmt.Sprintf("%s", k),
		fmt.Sprintf("%#v", k),
	} {
		assert.NotContains(t, s, "abab")
		assert.Contains(t, s, "REDACTED")
	}
}

func TestKey_IsZero(t *testing.T) {
	var k Key
	assert.True(t, k.IsZero())
	assert.False(t, MustParseHex(strings.Repeat("01", 32)).IsZero())
}

func TestMustParseHex_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParseHex("nope") })
}
