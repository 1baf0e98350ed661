package guard_test

import (
	"testing"

	"github.com/jrsteele09/go-teamchat/guard"
	"github.com/stretchr/testify/require"
)

func TestRules_Decide(t *testing.T) {
	rules := guard.DefaultRules()

	tests := []struct {
		name          string
		authenticated bool
		path          string
		want          guard.Decision
	}{
		{"signed in on login", true, "/login", guard.Decision{Action: guard.Redirect, Location: "/boards"}},
		{"signed out on boards", false, "/boards", guard.Decision{Action: guard.Redirect, Location: "/login"}},
		{"signed out on board", false, "/board/b1", guard.Decision{Action: guard.Redirect, Location: "/login"}},
		{"signed out on root", false, "/", guard.Decision{Action: guard.Redirect, Location: "/login"}},
		{"signed in on root", true, "/", guard.Decision{Action: guard.Redirect, Location: "/boards"}},
		{"signed in on nested boards", true, "/boards/42", guard.Decision{Action: guard.Allow}},
		{"signed in on board", true, "/board/b1", guard.Decision{Action: guard.Allow}},
		{"signed out on login", false, "/login", guard.Decision{Action: guard.Allow}},
		{"signed out elsewhere", false, "/about", guard.Decision{Action: guard.Allow}},
		{"signed in elsewhere", true, "/about", guard.Decision{Action: guard.Allow}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, rules.Decide(tt.authenticated, tt.path))
		})
	}
}

func TestRules_Applies(t *testing.T) {
	rules := guard.DefaultRules()

	for _, p := range []string{"/api/board/b1/messages", "/static/css/app.css", "/favicon.ico"} {
		require.False(t, rules.Applies(p), p)
	}
	for _, p := range []string{"/", "/login", "/boards", "/board/b1/live", "/auth/login"} {
		require.True(t, rules.Applies(p), p)
	}
}

func TestAction_String(t *testing.T) {
	require.Equal(t, "allow", guard.Allow.String())
	require.Equal(t, "redirect", guard.Redirect.String())
}
