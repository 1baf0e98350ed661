package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-teamchat/internal/config"
	"github.com/stretchr/testify/require"
)

func TestEnvVars(t *testing.T) {
	t.Run("port gets a colon prefix", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		require.Equal(t, ":9090", config.New().GetPort())
	})

	t.Run("production detection", func(t *testing.T) {
		t.Setenv("ENV", "production")
		c := config.New()
		require.True(t, c.IsProduction())
		require.True(t, c.GetSecureCookies())
	})

	t.Run("dev by default", func(t *testing.T) {
		t.Setenv("ENV", "")
		c := config.New()
		require.Equal(t, "DEV", c.GetEnv())
		require.False(t, c.GetSecureCookies())
	})

	t.Run("invalid page size falls back", func(t *testing.T) {
		t.Setenv("MESSAGE_PAGE_SIZE", "abc")
		require.Equal(t, 50, config.New().GetMessagePageSize())
	})
}

func TestBackend_RealtimeEndpoint(t *testing.T) {
	t.Run("explicit websocket endpoint wins", func(t *testing.T) {
		t.Setenv("APPSYNC_WS_MESSAGE_API_ENDPOINT", "wss://rt.example.com/graphql")
		require.Equal(t, "wss://rt.example.com/graphql", config.New().GetRealtimeEndpoint())
	})

	t.Run("derived from https endpoint", func(t *testing.T) {
		t.Setenv("APPSYNC_WS_MESSAGE_API_ENDPOINT", "")
		t.Setenv("APPSYNC_HTTPS_MESSAGE_API_ENDPOINT", "https://abc.appsync-api.us-east-1.amazonaws.com/graphql")
		require.Equal(t, "wss://abc.appsync-realtime-api.us-east-1.amazonaws.com/graphql", config.New().GetRealtimeEndpoint())
	})

	t.Run("empty stays empty", func(t *testing.T) {
		require.Equal(t, "", config.RealtimeURLFromHTTP(""))
	})
}

func TestSecurity(t *testing.T) {
	require.Equal(t, 30*24*time.Hour, config.New().GetRefreshTokenLifetime())

	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("BASE_URL", "https://chat.example.com")
	origins := config.New().GetAllowedOrigins()
	require.True(t, origins.IsAllowedOrigin("https://a.example.com"))
	require.True(t, origins.IsAllowedOrigin("https://b.example.com"))
	require.True(t, origins.IsAllowedOrigin("https://chat.example.com"))
	require.False(t, origins.IsAllowedOrigin("https://evil.example.com"))
}

func TestSecurity_TrustedProxies(t *testing.T) {
	t.Run("none by default", func(t *testing.T) {
		t.Setenv("TRUSTED_PROXIES", "")
		proxies := config.New().GetTrustedProxies()
		require.Empty(t, proxies)
		require.False(t, proxies.Contains("127.0.0.1"))
	})

	t.Run("addresses and ranges", func(t *testing.T) {
		t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.7 ,not-an-ip, ::1")
		proxies := config.New().GetTrustedProxies()
		require.Len(t, proxies, 3)
		require.True(t, proxies.Contains("10.20.30.40"))
		require.True(t, proxies.Contains("::ffff:10.1.1.1"))
		require.True(t, proxies.Contains("192.168.1.7"))
		require.False(t, proxies.Contains("192.168.1.8"))
		require.True(t, proxies.Contains("::1"))
		require.False(t, proxies.Contains("garbage"))
	})
}
