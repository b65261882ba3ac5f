package main

import (
	"bytes"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/handoff/internal/handoff"
	"github.com/DukeRupert/handoff/internal/secret"
)

var testKeyHex = strings.Repeat("42", 32)

func envWith(values map[string]string) func(string) string {
	return func(k string) string { return values[k] }
}

func TestRun_PrintsDecodableToken(t *testing.T) {
	var out bytes.Buffer

	err := run([]string{"--email", "a@b.com", "--user-id", "7"}, &out, envWith(map[string]string{"SECRET_HEX": testKeyHex}))
	require.NoError(t, err)

	claim, err := handoff.NewCodec(secret.MustParseHex(testKeyHex)).Decode(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", claim.Email)
	assert.Equal(t, "7", claim.UserID)
}

func TestRun_BaseURL(t *testing.T) {
	var out bytes.Buffer

	err := run([]string{"-e", "a@b.com", "-u", "7", "--base-url", "http://localhost:3000/"}, &out, envWith(map[string]string{"SECRET_HEX": testKeyHex}))
	require.NoError(t, err)

	u, err := url.Parse(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "localhost:3000", u.Host)
	assert.Equal(t, "/api/login", u.Path)

	_, err = handoff.NewCodec(secret.MustParseHex(testKeyHex)).Decode(u.Query().Get("t"))
	assert.NoError(t, err)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{name: "missing email", args: []string{"--user-id", "7"}, env: map[string]string{"SECRET_HEX": testKeyHex}},
		{name: "missing user id", args: []string{"--email", "a@b.com"}, env: map[string]string{"SECRET_HEX": testKeyHex}},
		{name: "non-positive ttl", args: []string{"-e", "a@b.com", "-u", "7", "--ttl", "0s"}, env: map[string]string{"SECRET_HEX": testKeyHex}},
		{name: "missing key", args: []string{"-e", "a@b.com", "-u", "7"}, env: map[string]string{}},
		{name: "unknown flag", args: []string{"--bogus"}, env: map[string]string{"SECRET_HEX": testKeyHex}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			assert.Error(t, run(tt.args, &out, envWith(tt.env)))
		})
	}
}
