// Package guard decides, per navigation, whether a request may proceed or must be redirected
// based on the session state and the class of the requested path.
package guard

import "strings"

type Action int

const (
	Allow Action = iota
	Redirect
)

func (a Action) String() string {
	if a == Redirect {
		return "redirect"
	}
	return "allow"
}

// Decision is the outcome of evaluating a path. Location is set for redirects only.
type Decision struct {
	Action   Action
	Location string
}

// Rules classify paths. Prefix matching is plain string prefix, so "/boards" also
// covers "/boards/42".
type Rules struct {
	ProtectedPrefixes []string
	AuthPrefixes      []string
	BypassPrefixes    []string
	HomePath          string
	LoginPath         string
}

// DefaultRules are the routes of the chat application.
func DefaultRules() Rules {
	return Rules{
		ProtectedPrefixes: []string{"/boards", "/board"},
		AuthPrefixes:      []string{"/login"},
		BypassPrefixes:    []string{"/api", "/static", "/favicon.ico"},
		HomePath:          "/boards",
		LoginPath:         "/login",
	}
}

// Applies reports whether the guard runs for path at all. API and static paths bypass it.
func (r Rules) Applies(path string) bool {
	return !hasAnyPrefix(path, r.BypassPrefixes)
}

func (r Rules) IsProtected(path string) bool {
	return hasAnyPrefix(path, r.ProtectedPrefixes)
}

func (r Rules) IsAuthRoute(path string) bool {
	return hasAnyPrefix(path, r.AuthPrefixes)
}

// Decide evaluates the guard table. It has no side effects.
func (r Rules) Decide(authenticated bool, path string) Decision {
	switch {
	case authenticated && r.IsAuthRoute(path):
		return Decision{Action: Redirect, Location: r.HomePath}
	case !authenticated && r.IsProtected(path):
		return Decision{Action: Redirect, Location: r.LoginPath}
	case !authenticated && path == "/":
		return Decision{Action: Redirect, Location: r.LoginPath}
	case authenticated && path == "/":
		return Decision{Action: Redirect, Location: r.HomePath}
	}
	return Decision{Action: Allow}
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
