// Package auth provides the token and password-hashing capability consumed
// by the services. Signing and hashing details stay behind this boundary.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"orderservice/internal/domain"
)

const (
	ScopeAccess  = "access"
	ScopeRefresh = "refresh"
)

type Token struct {
	Raw   string `json:"raw"`
	Scope string `json:"scope"`
}

type claims struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

type Helper struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewHelper(secret string, accessTTL, refreshTTL time.Duration) *Helper {
	return &Helper{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (h *Helper) HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (h *Helper) VerifyPassword(password, hashedPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// IssueToken mints a signed token for the given scope. Expiry depends on
// the scope; nothing else differs between access and refresh tokens.
func (h *Helper) IssueToken(scope, userID, email string) (Token, error) {
	ttl := h.accessTTL
	switch scope {
	case ScopeAccess:
	case ScopeRefresh:
		ttl = h.refreshTTL
	default:
		return Token{}, domain.InvalidData("invalid token scope " + scope)
	}

	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UID:   userID,
		Email: email,
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	raw, err := t.SignedString(h.secret)
	if err != nil {
		return Token{}, err
	}
	return Token{Raw: raw, Scope: scope}, nil
}

// VerifyToken checks signature, expiry and scope, and resolves the
// carried identity. Expired and malformed tokens both come back as
// NotAllowed; the HTTP layer turns that into 401.
func (h *Helper) VerifyToken(raw, wantScope string) (domain.CurrentUser, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return h.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.CurrentUser{}, domain.NotAllowed("token expired")
		}
		return domain.CurrentUser{}, domain.NotAllowed("invalid token")
	}
	if c.Scope != wantScope {
		return domain.CurrentUser{}, domain.NotAllowed("wrong token scope " + c.Scope)
	}
	return domain.CurrentUser{ID: c.UID, Email: c.Email}, nil
}
