package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeFile(t, "restling.yaml", `
defaultProfile: httpbin
profiles:
  httpbin:
    timeout: 10s
    userAgent: restling-tests
    serializer: sonic
    headers:
      Accept: application/json
    variables:
      host: httpbin.org
    auth:
      user: alice
      password: secret
  local:
    unsafeUri: true
    rateLimit: 2.5
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Profiles, 2)

	p, err := cfg.Profile("")
	require.NoError(t, err)
	assert.Equal(t, "restling-tests", p.UserAgent)
	assert.Equal(t, "application/json", p.Headers["Accept"])
	require.NotNil(t, p.Auth)
	assert.Equal(t, "alice", p.Auth.User)

	d, err := p.TimeoutDuration(time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, d)

	local, err := cfg.Profile("local")
	require.NoError(t, err)
	assert.True(t, local.UnsafeURI)
	assert.Equal(t, 2.5, local.RateLimit)

	_, err = cfg.Profile("missing")
	assert.Error(t, err)
}

func TestLoadConfig_JSON(t *testing.T) {
	path := writeFile(t, "restling.json", `{
		"profiles": {
			"api": {"timeout": "1 minute", "unsafeXml": true, "auth": {"token": "abc"}}
		}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	p, err := cfg.Profile("api")
	require.NoError(t, err)
	assert.True(t, p.UnsafeXML)

	d, err := p.TimeoutDuration(0)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "config file not found")

	_, err = LoadConfig(writeFile(t, "broken.json", `{"profiles":`))
	assert.ErrorContains(t, err, "error parsing config file")

	_, err = LoadConfig(writeFile(t, "invalid.yaml", `
defaultProfile: nope
profiles:
  a:
    timeout: soon
    serializer: gob
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "defaultProfile")
	assert.Contains(t, err.Error(), "profiles.a.timeout")
	assert.Contains(t, err.Error(), "profiles.a.serializer")
}

func TestProfile_EmptyWithoutProfiles(t *testing.T) {
	p, err := (&Config{}).Profile("")
	require.NoError(t, err)
	assert.Equal(t, Profile{}, p)

	d, err := p.TimeoutDuration(30 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("RESTLING_TIMEOUT", "5s")
	t.Setenv("RESTLING_USER_AGENT", "from-env")
	t.Setenv("RESTLING_UNSAFE_XML", "true")
	t.Setenv("RESTLING_RATE_LIMIT", "3")
	t.Setenv("RESTLING_TOKEN", "tok")
	t.Setenv("RESTLING_COOKIE_PASSPHRASE", "hunter2")

	p, err := ApplyEnv(Profile{Timeout: "30s", UserAgent: "file", Serializer: "jsoniter"})
	require.NoError(t, err)

	assert.Equal(t, "5s", p.Timeout)
	assert.Equal(t, "from-env", p.UserAgent)
	assert.Equal(t, "jsoniter", p.Serializer)
	assert.True(t, p.UnsafeXML)
	assert.Equal(t, 3.0, p.RateLimit)
	assert.Equal(t, "hunter2", p.CookiePassphrase)
	require.NotNil(t, p.Auth)
	assert.Equal(t, "tok", p.Auth.Token)
}

func TestApplyEnv_Invalid(t *testing.T) {
	t.Setenv("RESTLING_UNSAFE_XML", "maybe")
	_, err := ApplyEnv(Profile{})
	assert.ErrorContains(t, err, "RESTLING_UNSAFE_XML")
}

func TestResolveProfile(t *testing.T) {
	path := writeFile(t, "restling.yml", `
profiles:
  a:
    userAgent: file-agent
`)

	p, err := ResolveProfile(path, "a")
	require.NoError(t, err)
	assert.Equal(t, "file-agent", p.UserAgent)

	p, err = ResolveProfile("", "")
	require.NoError(t, err)
	assert.Equal(t, Profile{}, p)

	_, err = ResolveProfile("", "a")
	assert.Error(t, err)
}

func TestProcessVariables(t *testing.T) {
	vars := map[string]string{"host": "httpbin.org", "id": "7"}

	assert.Equal(t, "https://httpbin.org/anything/7", ProcessVariables("https://{{host}}/anything/{{id}}", vars))
	assert.Equal(t, "{{unknown}}", ProcessVariables("{{unknown}}", vars))
	assert.Equal(t, map[string]string{"X-Id": "7"}, ProcessVariablesInMap(map[string]string{"X-Id": "{{id}}"}, vars))
}
