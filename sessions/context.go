package sessions

import (
	"context"
	"net/http"
)

// Context is the cookie jar of a single request. Writes are visible to later reads
// made through the same Context, as they would be in the browser after the response.
type Context struct {
	w       http.ResponseWriter
	r       *http.Request
	pending map[string]*http.Cookie
}

// NewContext wraps a request/response pair. w may be nil for read-only use.
func NewContext(w http.ResponseWriter, r *http.Request) *Context {
	return &Context{w: w, r: r, pending: make(map[string]*http.Cookie)}
}

func (c *Context) Context() context.Context {
	if c.r == nil {
		return context.Background()
	}
	return c.r.Context()
}

func (c *Context) Request() *http.Request {
	return c.r
}

// Cookie returns a cookie value. Any read failure counts as absent.
func (c *Context) Cookie(name string) (string, bool) {
	if ck, ok := c.pending[name]; ok {
		if ck.MaxAge < 0 {
			return "", false
		}
		return ck.Value, ck.Value != ""
	}
	if c.r == nil {
		return "", false
	}
	ck, err := c.r.Cookie(name)
	if err != nil || ck.Value == "" {
		return "", false
	}
	return ck.Value, true
}

func (c *Context) SetCookie(ck *http.Cookie) {
	c.pending[ck.Name] = ck
	if c.w != nil {
		http.SetCookie(c.w, ck)
	}
}
