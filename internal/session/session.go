// Package session keeps the durable client-side session: the bearer token
// and the display username, always written and cleared together.
package session

import (
	"context"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Fixed keys the session is persisted under.
const (
	KeyToken = "access_token"
	KeyUser  = "current_user"
)

// Session is the persisted authentication state.
type Session struct {
	Token    string `json:"access_token"`
	Username string `json:"current_user"`
}

// Authenticated reports whether a token is present. The token is not
// re-validated; the first 401 from the API is what ends the session.
func (s Session) Authenticated() bool { return s.Token != "" }

// Store is durable storage for exactly one session.
type Store interface {
	Load() (Session, error)
	Save(Session) error
	Clear() error
}

// Keyed stores many sessions, one per console-session id (one per browser).
type Keyed interface {
	Get(ctx context.Context, id string) (Session, error)
	Put(ctx context.Context, id string, s Session) error
	Delete(ctx context.Context, id string) error
}

// Bound returns the Store view of one id inside a Keyed store.
func Bound(keyed Keyed, id string) Store {
	return &bound{keyed: keyed, id: id}
}

type bound struct {
	keyed Keyed
	id    string
}

const boundTimeout = 5 * time.Second

func (b *bound) Load() (Session, error) {
	ctx, cancel := context.WithTimeout(context.Background(), boundTimeout)
	defer cancel()
	return b.keyed.Get(ctx, b.id)
}

func (b *bound) Save(s Session) error {
	ctx, cancel := context.WithTimeout(context.Background(), boundTimeout)
	defer cancel()
	return b.keyed.Put(ctx, b.id, s)
}

func (b *bound) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), boundTimeout)
	defer cancel()
	return b.keyed.Delete(ctx, b.id)
}

// Provider adapts a Store to the API client's session dependency.
// The token is read from the store on every call.
type Provider struct {
	store Store
}

func NewProvider(store Store) *Provider {
	return &Provider{store: store}
}

func (p *Provider) Token() string {
	s, err := p.store.Load()
	if err != nil {
		log.Printf("⚠️  No se pudo leer la sesión: %v", err)
		return ""
	}
	return s.Token
}

func (p *Provider) Store(token, username string) error {
	return p.store.Save(Session{Token: token, Username: username})
}

func (p *Provider) Clear() error {
	return p.store.Clear()
}

// ExpiresAt peeks at the exp claim of a JWT without verifying it. The
// console only uses it to show when the session ends; the API remains the
// authority on validity.
func ExpiresAt(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
