package config

import "time"

type Config interface {
	EnvConfig
	BackendConfig
	SecurityConfig
	ChatConfig
	CorsConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetEnv() string
	IsProduction() bool
}

// BackendConfig locates the managed GraphQL backends.
type BackendConfig interface {
	GetAuthEndpoint() string
	GetAuthAPIKey() string
	GetBoardEndpoint() string
	GetBoardAPIKey() string
	GetMessageEndpoint() string
	GetMessageAPIKey() string
	GetRealtimeEndpoint() string
	GetRegion() string
}

type ChatConfig interface {
	GetMessagePageSize() int
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type SecurityConfig interface {
	GetRefreshTokenLifetime() time.Duration
	GetSecureCookies() bool
	GetSessionSecret() string
	GetIdentityIssuer() string
	GetIdentityJWKSURL() string
	GetIdentityClientID() string
	GetLoginRatePerMinute() int
	GetTrustedProxies() TrustedProxies
}

type mainConfig struct {
	EnvVars
	Backend
	Security
	Chat
	Cors
}

func New() Config {
	return mainConfig{}
}
