package config

import (
	"net/netip"
	"strings"
	"time"
)

type Security struct{}

var _ SecurityConfig = Security{}

// GetRefreshTokenLifetime is fixed and independent of the identity token expiry.
func (Security) GetRefreshTokenLifetime() time.Duration {
	return 30 * 24 * time.Hour
}

func (Security) GetSecureCookies() bool {
	return EnvVars{}.IsProduction()
}

// GetSessionSecret is the key material for signed flash cookies. Empty means random per process.
func (Security) GetSessionSecret() string {
	return GetEnv("SESSION_SECRET", "")
}

func (Security) GetIdentityIssuer() string {
	return GetEnv("IDENTITY_ISSUER", "")
}

func (Security) GetIdentityJWKSURL() string {
	return GetEnv("IDENTITY_JWKS_URL", "")
}

func (Security) GetIdentityClientID() string {
	return GetEnv("IDENTITY_CLIENT_ID", "")
}

func (Security) GetLoginRatePerMinute() int {
	return GetEnvInt("LOGIN_RATE_PER_MINUTE", 10)
}

// TrustedProxies are the peers whose X-Forwarded-For header is believed.
type TrustedProxies []netip.Prefix

func (p TrustedProxies) Contains(addr string) bool {
	ip, err := netip.ParseAddr(strings.TrimSpace(addr))
	if err != nil {
		return false
	}
	ip = ip.Unmap()
	for _, prefix := range p {
		if prefix.Contains(ip) {
			return true
		}
	}
	return false
}

// GetTrustedProxies reads TRUSTED_PROXIES as a comma separated list of addresses or CIDRs.
// Entries that do not parse are skipped. Empty means no proxy is trusted.
func (Security) GetTrustedProxies() TrustedProxies {
	var proxies TrustedProxies
	for _, entry := range strings.Split(GetEnv("TRUSTED_PROXIES", ""), ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			if prefix, err := netip.ParsePrefix(entry); err == nil {
				proxies = append(proxies, prefix.Masked())
			}
			continue
		}
		if addr, err := netip.ParseAddr(entry); err == nil {
			addr = addr.Unmap()
			proxies = append(proxies, netip.PrefixFrom(addr, addr.BitLen()))
		}
	}
	return proxies
}
