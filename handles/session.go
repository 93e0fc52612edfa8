package handles

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"camelot/command"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	cookieName     = "camelot_session"
	cookieUserKey  = "user"
	tokenHeader    = "X-Session-Token"
	bearerPrefix   = "Bearer "
	cookieLifetime = 16 * time.Hour

	commandLogin = "login"
)

// Revocations remembers logged-out token IDs until the tokens expire.
type Revocations interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryRevocations keeps revoked token IDs in process. It is used when no
// Redis is configured, so revocations do not survive a restart.
type MemoryRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{revoked: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryRevocations) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, exp := range m.revoked {
		if !exp.After(now) {
			delete(m.revoked, id)
		}
	}
	if expiresAt.After(now) {
		m.revoked[tokenID] = expiresAt
	}
	return nil
}

func (m *MemoryRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.revoked[tokenID]
	return ok && exp.After(m.now()), nil
}

// Sessions rebuilds a command.Session from request credentials and writes
// identity changes back to the client.
type Sessions struct {
	tokens      *Tokens
	revocations Revocations
	cookies     sessions.Store
	log         *logrus.Logger
}

func NewSessions(tokens *Tokens, revocations Revocations, cookieKey string, log *logrus.Logger) *Sessions {
	store := sessions.NewCookieStore([]byte(cookieKey))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cookieLifetime.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
	return &Sessions{tokens: tokens, revocations: revocations, cookies: store, log: log}
}

// binding is the identity a request arrived with. user keeps the bound
// name after the command has run against session.
type binding struct {
	session *command.Session
	claims  *JwtCustomClaims
	user    string
}

// bind reads a bearer token first and falls back to the session cookie. A
// request with an Authorization header never falls back, even when the
// token is rejected.
func (s *Sessions) bind(c echo.Context) binding {
	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		claims := s.verify(c.Request().Context(), header)
		if claims == nil {
			return binding{session: &command.Session{}}
		}
		return binding{session: command.NewSession(claims.UserID), claims: claims, user: claims.UserID}
	}

	cookie, err := s.cookies.Get(c.Request(), cookieName)
	if err != nil {
		s.log.WithError(err).Debug("session cookie rejected")
		return binding{session: &command.Session{}}
	}
	user, _ := cookie.Values[cookieUserKey].(string)
	return binding{session: command.NewSession(user), user: user}
}

func (s *Sessions) verify(ctx context.Context, header string) *JwtCustomClaims {
	if !strings.HasPrefix(header, bearerPrefix) {
		return nil
	}
	claims, err := s.tokens.JWTUnencoder(strings.TrimPrefix(header, bearerPrefix))
	if err != nil {
		s.log.WithError(err).Debug("bearer token rejected")
		return nil
	}
	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		s.log.WithError(err).Warn("revocation lookup failed")
		return nil
	}
	if revoked {
		return nil
	}
	return claims
}

// commit writes identity changes back to the client. It must run before the
// response body is written. A successful login replaces the credentials the
// request carried. A request that arrived with an identity and ends without
// one has its credentials retired: logout, deleting the bound account, or an
// account already gone.
func (s *Sessions) commit(c echo.Context, b binding, resp command.Response) error {
	switch {
	case resp.Err == nil && resp.Command == commandLogin:
		return s.issue(c, b.claims, b.session.User())
	case b.user != "" && !b.session.LoggedIn():
		return s.clear(c, b.claims)
	}
	return nil
}

func (s *Sessions) revoke(ctx context.Context, claims *JwtCustomClaims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	return s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

func (s *Sessions) issue(c echo.Context, previous *JwtCustomClaims, user string) error {
	if err := s.revoke(c.Request().Context(), previous); err != nil {
		return err
	}
	token, _, err := s.tokens.JWTTokenGenerate(user)
	if err != nil {
		return err
	}
	c.Response().Header().Set(tokenHeader, token)

	cookie, _ := s.cookies.Get(c.Request(), cookieName)
	cookie.Values[cookieUserKey] = user
	return cookie.Save(c.Request(), c.Response())
}

func (s *Sessions) clear(c echo.Context, claims *JwtCustomClaims) error {
	if err := s.revoke(c.Request().Context(), claims); err != nil {
		return err
	}
	cookie, _ := s.cookies.Get(c.Request(), cookieName)
	delete(cookie.Values, cookieUserKey)
	cookie.Options.MaxAge = -1
	return cookie.Save(c.Request(), c.Response())
}
