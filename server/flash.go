package server

import (
	"crypto/sha256"
	"io"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/hkdf"
)

const flashSessionName = "flash"

// Flash keys.
const (
	flashError = "error"
	flashEmail = "email"
	flashDraft = "draft"
)

// flashStore carries one-shot values across a redirect in a signed and encrypted cookie.
type flashStore struct {
	store *sessions.CookieStore
}

// newFlashStore derives the hash and block keys from secret. An empty secret gives random
// keys, so flashes do not survive a restart.
func newFlashStore(secret string, secure bool) (*flashStore, error) {
	var hashKey, blockKey []byte
	if secret == "" {
		log.Warn().Msg("SESSION_SECRET is not set, using random flash cookie keys")
		hashKey = securecookie.GenerateRandomKey(64)
		blockKey = securecookie.GenerateRandomKey(32)
	} else {
		var err error
		if hashKey, err = deriveKey(secret, "flash-hash", 64); err != nil {
			return nil, err
		}
		if blockKey, err = deriveKey(secret, "flash-block", 32); err != nil {
			return nil, err
		}
	}

	store := sessions.NewCookieStore(hashKey, blockKey)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
	return &flashStore{store: store}, nil
}

func deriveKey(secret, info string, size int) ([]byte, error) {
	h := hkdf.New(sha256.New, []byte(secret), nil, []byte(info))
	out := make([]byte, size)
	if _, err := io.ReadFull(h, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Set adds values to the flash cookie. It must run before the response is written.
func (f *flashStore) Set(w http.ResponseWriter, r *http.Request, values map[string]string) {
	sess, _ := f.store.Get(r, flashSessionName)
	for k, v := range values {
		if v != "" {
			sess.AddFlash(v, k)
		}
	}
	if err := sess.Save(r, w); err != nil {
		log.Err(err).Msg("Failed to save flash")
	}
}

// Pop reads and clears the flash values. A cookie that fails to decode reads as empty.
func (f *flashStore) Pop(w http.ResponseWriter, r *http.Request, keys ...string) map[string]string {
	out := make(map[string]string, len(keys))
	sess, err := f.store.Get(r, flashSessionName)
	if err != nil {
		log.Debug().Err(err).Msg("Discarding unreadable flash cookie")
	}
	if sess.IsNew {
		return out
	}
	for _, k := range keys {
		for _, v := range sess.Flashes(k) {
			if s, ok := v.(string); ok {
				out[k] = s
			}
		}
	}
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		log.Err(err).Msg("Failed to clear flash")
	}
	return out
}
