package config

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("VIDTUBE_PORT", "")
	t.Setenv("VIDTUBE_ENV", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.AppPort)
	assert.Equal(t, "migrations", cfg.MigrationDir)
	assert.Equal(t, 24*time.Hour, cfg.Tokens.AccessTTL)
	assert.Equal(t, 10*24*time.Hour, cfg.Tokens.RefreshTTL)
	assert.True(t, cfg.Cookies.Secure)
	assert.Equal(t, int64(512)<<20, cfg.Media.MaxUploadBytes)
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("VIDTUBE_PORT", "9090")
	t.Setenv("VIDTUBE_ACCESS_TOKEN_TTL", "15m")
	t.Setenv("VIDTUBE_COOKIE_SECURE", "false")
	t.Setenv("VIDTUBE_S3_BUCKET", "media")
	t.Setenv("VIDTUBE_STATS_CACHE_TTL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.AppPort)
	assert.Equal(t, 15*time.Minute, cfg.Tokens.AccessTTL)
	assert.False(t, cfg.Cookies.Secure)
	assert.Equal(t, "media", cfg.ObjectStore.Bucket)
	assert.Equal(t, 30*time.Second, cfg.Cache.StatsTTL, "invalid durations fall back to the default")
}

func TestLoadRejectsInvalidSecrets(t *testing.T) {
	t.Setenv("VIDTUBE_ACCESS_TOKEN_SECRET", "same")
	t.Setenv("VIDTUBE_REFRESH_TOKEN_SECRET", "same")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsDevSecretsInProduction(t *testing.T) {
	t.Setenv("VIDTUBE_ENV", "production")
	t.Setenv("VIDTUBE_ACCESS_TOKEN_SECRET", "")
	t.Setenv("VIDTUBE_REFRESH_TOKEN_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadTrustedProxies(t *testing.T) {
	t.Setenv("VIDTUBE_TRUSTED_PROXIES", "10.0.0.0/8, 127.0.0.1")

	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.HTTP.TrustedProxies, 2)
	assert.True(t, cfg.HTTP.TrustedProxies[0].Contains(netip.MustParseAddr("10.1.2.3")))
	assert.Equal(t, netip.MustParsePrefix("127.0.0.1/32"), cfg.HTTP.TrustedProxies[1])

	t.Setenv("VIDTUBE_TRUSTED_PROXIES", "not-an-ip")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadIgnoresForwardedHeadersByDefault(t *testing.T) {
	t.Setenv("VIDTUBE_TRUSTED_PROXIES", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.HTTP.TrustedProxies)
}
