package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// SessionCookie is the name of the admin session cookie.
const SessionCookie = "admin_session"

// Accounts is the persistence surface the auth service needs. *Repository
// implements it; tests substitute an in-memory fake.
type Accounts interface {
	GetByUsername(ctx context.Context, username string) (*Account, error)
	Count(ctx context.Context) (int, error)
	Insert(ctx context.Context, username, passwordHash string) (Account, bool, error)
}

// Auth runs the login state machine and mints session tokens.
type Auth struct {
	accounts      Accounts
	issuer        string
	signingKey    []byte
	sessionTTL    time.Duration
	bootstrapUser string
}

// NewAuth creates the auth service.
func NewAuth(accounts Accounts, issuer, signingKey string, sessionTTL time.Duration, bootstrapUser string) *Auth {
	return &Auth{
		accounts:      accounts,
		issuer:        issuer,
		signingKey:    []byte(signingKey),
		sessionTTL:    sessionTTL,
		bootstrapUser: bootstrapUser,
	}
}

// SessionTTL returns the session lifetime, for cookie max-age.
func (a *Auth) SessionTTL() time.Duration { return a.sessionTTL }

// Login authenticates a username/password pair and returns a signed session
// token. When no admin accounts exist yet, a login as the reserved bootstrap
// username creates the first account with the submitted password.
func (a *Auth) Login(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", ErrInvalidCredentials
	}

	acct, err := a.accounts.GetByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("lookup admin: %w", err)
	}

	if acct == nil {
		n, err := a.accounts.Count(ctx)
		if err != nil {
			return "", fmt.Errorf("count admins: %w", err)
		}
		if n != 0 || username != a.bootstrapUser {
			return "", ErrInvalidCredentials
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return "", fmt.Errorf("hash password: %w", err)
		}
		created, inserted, err := a.accounts.Insert(ctx, username, string(hash))
		if err != nil {
			return "", fmt.Errorf("create bootstrap admin: %w", err)
		}
		if !inserted {
			// Lost a bootstrap race; authenticate against the winner's row.
			if acct, err = a.accounts.GetByUsername(ctx, username); err != nil || acct == nil {
				return "", ErrInvalidCredentials
			}
		} else {
			acct = &created
		}
	}

	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}
	return a.issueToken(acct.ID)
}

type sessionClaims struct {
	jwt.RegisteredClaims
}

// issueToken mints an HS256 session token for the admin id.
func (a *Auth) issueToken(adminID string) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   adminID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.sessionTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.signingKey)
}

// VerifySession validates a session token and returns the admin id. The
// value of the cookie is checked on every gated request, not just its
// presence.
func (a *Auth) VerifySession(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return a.signingKey, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid {
		return "", errors.New("invalid session token")
	}
	if a.issuer != "" && claims.Issuer != a.issuer {
		return "", errors.New("issuer mismatch")
	}
	return claims.Subject, nil
}
