package config

import "strings"

type Backend struct{}

var _ BackendConfig = Backend{}

func (Backend) GetAuthEndpoint() string {
	return GetEnv("AUTH_APPSYNC_ENDPOINT", "")
}

func (Backend) GetAuthAPIKey() string {
	return GetEnv("AUTH_APPSYNC_API_KEY", "")
}

func (Backend) GetBoardEndpoint() string {
	return GetEnv("BOARD_ENDPOINT", "")
}

func (Backend) GetBoardAPIKey() string {
	return GetEnv("BOARD_API_KEY", "")
}

func (Backend) GetMessageEndpoint() string {
	return GetEnv("APPSYNC_HTTPS_MESSAGE_API_ENDPOINT", "")
}

func (Backend) GetMessageAPIKey() string {
	return GetEnv("APPSYNC_API_KEY", "")
}

// GetRealtimeEndpoint falls back to the AppSync naming convention when no websocket
// endpoint is configured: https://x.appsync-api.<region>... -> wss://x.appsync-realtime-api.<region>...
func (b Backend) GetRealtimeEndpoint() string {
	if ws := GetEnv("APPSYNC_WS_MESSAGE_API_ENDPOINT", ""); ws != "" {
		return ws
	}
	return RealtimeURLFromHTTP(b.GetMessageEndpoint())
}

func (Backend) GetRegion() string {
	return GetEnv("AWS_REGION", "us-east-1")
}

// RealtimeURLFromHTTP derives the AppSync realtime URL from the GraphQL HTTPS URL.
func RealtimeURLFromHTTP(endpoint string) string {
	if endpoint == "" {
		return ""
	}
	u := strings.Replace(endpoint, "appsync-api", "appsync-realtime-api", 1)
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u
}
