package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockFileSystem struct {
	files map[string]string
}

func (fs *mockFileSystem) ReadFile(name string) ([]byte, error) {
	content, ok := fs.files[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return []byte(content), nil
}

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestDefaultsAreValid(t *testing.T) {
	assert := assert.New(t)

	c, err := Load(&mockFileSystem{}, "", nil)

	assert.Nil(err)
	assert.Equal(Default(), c)
	assert.Equal(60, c.Protection.MaxRequestsPerMinute)
	assert.Equal(1000, c.Protection.MaxRequestsPerHour)
	assert.Equal(30, c.Protection.ReputationThreshold)
	assert.True(c.Protection.BotDetectionEnabled)
	assert.True(c.Protection.ChallengeEnabled)
	assert.Equal(250*time.Millisecond, c.Store.OpTimeout)
}

func TestLoadYAML(t *testing.T) {
	// Arrange
	assert := assert.New(t)
	fs := &mockFileSystem{files: map[string]string{"/etc/edgeguard.yaml": `
protection:
  max_requests_per_minute: 5
  challenge_enabled: false
store:
  backend: redis
  redis_url: redis://localhost:6379/2
  op_timeout: 100ms
analytics:
  attack_ttl: 10s
blocked_networks:
  - 10.0.0.0/8
  - 192.0.2.1
trusted_proxies:
  - 172.16.0.0/12
`}}

	// Act
	c, err := Load(fs, "/etc/edgeguard.yaml", nil)

	// Assert
	require.NoError(t, err)
	assert.Equal(5, c.Protection.MaxRequestsPerMinute)
	assert.Equal(1000, c.Protection.MaxRequestsPerHour)
	assert.False(c.Protection.ChallengeEnabled)
	assert.True(c.Protection.BotDetectionEnabled)
	assert.Equal("redis", c.Store.Backend)
	assert.Equal("redis://localhost:6379/2", c.Store.RedisURL)
	assert.Equal(100*time.Millisecond, c.Store.OpTimeout)
	assert.Equal(10*time.Second, c.Analytics.AttackTTL)
	assert.Equal(60*time.Second, c.Analytics.ReputationTTL)
	assert.Equal([]string{"10.0.0.0/8", "192.0.2.1"}, c.BlockedNetworks)
	assert.Equal([]string{"172.16.0.0/12"}, c.TrustedProxies)
}

func TestEnvOverridesFile(t *testing.T) {
	assert := assert.New(t)
	fs := &mockFileSystem{files: map[string]string{"c.yaml": "http:\n  addr: \":9000\"\n"}}

	c, err := Load(fs, "c.yaml", env(map[string]string{
		"EDGEGUARD_HTTP_ADDR":       ":9100",
		"EDGEGUARD_MAX_PER_MINUTE":  "7",
		"EDGEGUARD_CHALLENGE":       "false",
		"EDGEGUARD_TRUSTED_PROXIES": "10.0.0.0/8, 192.168.0.0/16",
		"EDGEGUARD_STORE":           "redis",
		"EDGEGUARD_REDIS_URL":       "redis://cache:6379",
	}))

	require.NoError(t, err)
	assert.Equal(":9100", c.HTTP.Addr)
	assert.Equal(7, c.Protection.MaxRequestsPerMinute)
	assert.False(c.Protection.ChallengeEnabled)
	assert.Equal([]string{"10.0.0.0/8", "192.168.0.0/16"}, c.TrustedProxies)
	assert.Equal("redis://cache:6379", c.Store.RedisURL)
}

func TestInvalidEnvValue(t *testing.T) {
	_, err := Load(&mockFileSystem{}, "", env(map[string]string{"EDGEGUARD_MAX_PER_HOUR": "lots"}))

	assert.ErrorContains(t, err, "EDGEGUARD_MAX_PER_HOUR")
}

func TestInvalidConfigurations(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero limit", "protection:\n  max_requests_per_minute: 0\n"},
		{"threshold above range", "protection:\n  reputation_threshold: 101\n"},
		{"positive penalty", "protection:\n  bot_penalty: 3\n"},
		{"unknown backend", "store:\n  backend: etcd\n"},
		{"redis without url", "store:\n  backend: redis\n"},
		{"bad cidr", "trusted_proxies: [\"10.0.0.0/33\"]\n"},
		{"bad blocked network", "blocked_networks: [\"example.com\"]\n"},
		{"budget below page size", "analytics:\n  page_size: 100\n  key_budget: 10\n"},
		{"unknown field", "protecton:\n  max_requests_per_minute: 5\n"},
		{"bad duration", "store:\n  op_timeout: soon\n"},
	}

	for _, tt := range tests {
		fs := &mockFileSystem{files: map[string]string{"c.yaml": tt.yaml}}
		_, err := Load(fs, "c.yaml", nil)
		assert.NotNil(t, err, tt.name)
	}
}

func TestMissingConfigFile(t *testing.T) {
	_, err := Load(&mockFileSystem{}, "nope.yaml", nil)

	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestEmptyConfigFile(t *testing.T) {
	fs := &mockFileSystem{files: map[string]string{"c.yaml": ""}}

	c, err := Load(fs, "c.yaml", nil)

	assert.Nil(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadDotEnv(t *testing.T) {
	// Arrange
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("EDGEGUARD_TEST_DOTENV=from-file\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("EDGEGUARD_TEST_DOTENV") })

	// Act
	err := LoadDotEnv(filepath.Join(dir, "missing.env"), path)

	// Assert
	assert.Nil(t, err)
	assert.Equal(t, "from-file", os.Getenv("EDGEGUARD_TEST_DOTENV"))
}

func TestOSFileSystem(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("grpc:\n  enabled: true\n"), 0o644))

	c, err := Load(OSFileSystem{}, path, nil)

	assert.Nil(t, err)
	assert.True(t, c.GRPC.Enabled)
}
