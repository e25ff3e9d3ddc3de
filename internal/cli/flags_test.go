package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
		user     string
	}{
		{"simple", "https://example.com/path", "https://example.com/path", ""},
		{"query", "https://example.com/path?param=value", "https://example.com/path?param=value", ""},
		{"fragment", "https://example.com/path#fragment", "https://example.com/path#fragment", ""},
		{"no scheme", "example.com/path", "http://example.com/path", ""},
		{"no path", "https://example.com", "https://example.com/", ""},
		{"complex", "https://api.example.com:8080/v1/users/123?filter=active#details", "https://api.example.com:8080/v1/users/123?filter=active#details", ""},
		{"user info", "https://bob:pw@example.com/x", "https://example.com/x", "bob"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, user, err := normalizeURL(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
			if tt.user == "" {
				assert.Nil(t, user)
			} else {
				require.NotNil(t, user)
				assert.Equal(t, tt.user, user.Username())
			}
		})
	}

	_, _, err := normalizeURL("http://")
	assert.Error(t, err)
}

func TestParseHeader(t *testing.T) {
	key, value, err := parseHeader("Content-Type:  application/json ")
	require.NoError(t, err)
	assert.Equal(t, "Content-Type", key)
	assert.Equal(t, "application/json", value)

	key, value, err = parseHeader("X-Empty:")
	require.NoError(t, err)
	assert.Equal(t, "X-Empty", key)
	assert.Empty(t, value)

	for _, bad := range []string{"NoColon", ": value"} {
		_, _, err := parseHeader(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseForm(t *testing.T) {
	form, err := parseForm([]string{"a=1", "a=2", "b=x=y", "c="})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, form["a"])
	assert.Equal(t, "x=y", form.Get("b"))
	assert.Equal(t, "", form.Get("c"))

	_, err = parseForm([]string{"novalue"})
	assert.Error(t, err)
}

func TestRequestFlagsValidate(t *testing.T) {
	assert.NoError(t, (&requestFlags{repeat: 1}).validate())
	assert.Error(t, (&requestFlags{repeat: 1, data: "x", jsonData: "{}"}).validate())
	assert.Error(t, (&requestFlags{repeat: 1, user: "a", bearer: "b"}).validate())
	assert.Error(t, (&requestFlags{repeat: 0}).validate())
	assert.Error(t, (&requestFlags{repeat: 1, rate: -1}).validate())
}
