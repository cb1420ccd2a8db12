package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

// DefaultNonceLifetime matches the day-long validity of admin action links.
const DefaultNonceLifetime = 24 * time.Hour

// Nonces issues signed, expiring tokens bound to an action name.
type Nonces struct {
	codec *securecookie.SecureCookie
}

// NewNonces signs tokens with secret. An empty secret gets a random key, so
// tokens do not survive a restart.
func NewNonces(secret []byte, lifetime time.Duration) *Nonces {
	if len(secret) == 0 {
		secret = securecookie.GenerateRandomKey(32)
	}
	if lifetime <= 0 {
		lifetime = DefaultNonceLifetime
	}
	codec := securecookie.New(secret, nil)
	codec.MaxAge(int(lifetime / time.Second))
	return &Nonces{codec: codec}
}

// Create returns a token valid for action only.
func (n *Nonces) Create(action string) (string, error) {
	return n.codec.Encode(action, uuid.NewString())
}

// Verify reports whether token was created for action and has not expired.
func (n *Nonces) Verify(action, token string) bool {
	if token == "" {
		return false
	}
	var id string
	return n.codec.Decode(action, token, &id) == nil
}
