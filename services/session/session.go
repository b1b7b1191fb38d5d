// Package sessionsvc keeps the signed in user in an encrypted cookie.
package sessionsvc

import (
	"crypto/sha256"
	"io"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/pkg/errors"
	"golang.org/x/crypto/hkdf"

	"github.com/trezcool/tdm/core"
	"github.com/trezcool/tdm/core/user"
)

const (
	CookieName = "__tdm_session"

	identityKey = "identity"
	maxAge      = 30 * 24 * 60 * 60 // 30 days
)

var keysInfo = []byte("tdm session cookie keys")

// Manager creates, reads and destroys sessions. Cookies are signed (HMAC-SHA256) then
// encrypted (AES-256) with keys derived from the session secret, so rotating the secret
// invalidates every session.
type Manager struct {
	store *sessions.CookieStore
}

func New(conf *core.Config) (*Manager, error) {
	hashKey, blockKey, err := deriveKeys(conf.SessionSecret)
	if err != nil {
		return nil, err
	}

	store := sessions.NewCookieStore(hashKey, blockKey)
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   conf.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(maxAge)
	return &Manager{store: store}, nil
}

func deriveKeys(secret string) (hashKey, blockKey []byte, err error) {
	if secret == "" {
		return nil, nil, errors.New("empty session secret")
	}
	kdf := hkdf.New(sha256.New, []byte(secret), nil, keysInfo)
	hashKey = make([]byte, 64)
	blockKey = make([]byte, 32)
	if _, err = io.ReadFull(kdf, hashKey); err != nil {
		return nil, nil, errors.Wrap(err, "deriving hash key")
	}
	if _, err = io.ReadFull(kdf, blockKey); err != nil {
		return nil, nil, errors.Wrap(err, "deriving block key")
	}
	return hashKey, blockKey, nil
}

// Create starts a session for id, replacing any previous one.
func (m *Manager) Create(w http.ResponseWriter, r *http.Request, id user.Identity) error {
	sess := m.session(r)
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	sess.Values[identityKey] = id
	sess.Options.MaxAge = maxAge
	return errors.Wrap(sess.Save(r, w), "saving session")
}

// Read returns the identity of the request's session. A missing, tampered, expired or
// undecodable cookie reads as no session.
func (m *Manager) Read(r *http.Request) (user.Identity, bool) {
	sess, err := m.store.Get(r, CookieName)
	if err != nil {
		return user.Identity{}, false
	}
	id, ok := sess.Values[identityKey].(user.Identity)
	if !ok || id.ID == 0 {
		return user.Identity{}, false
	}
	return id, true
}

// Destroy expires the session cookie.
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) error {
	sess := m.session(r)
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	sess.Options.MaxAge = -1
	return errors.Wrap(sess.Save(r, w), "deleting session")
}

// session returns the request's session. Cookies that can't be decoded yield a fresh one.
func (m *Manager) session(r *http.Request) *sessions.Session {
	sess, _ := m.store.Get(r, CookieName)
	return sess
}
