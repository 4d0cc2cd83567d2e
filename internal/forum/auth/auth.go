// Package auth resolves the actor behind a request: a user from a bearer
// token, or an anonymous caller identified by network address.
package auth

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MyNameIsWhaaat/bachub/internal/forum/model"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims is the token payload issued by the accounts service.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"user_id"`
	Staff  bool  `json:"is_staff,omitempty"`
}

type Provider struct {
	secretKey  []byte
	trustProxy bool
}

func NewProvider(secret string, trustProxy bool) *Provider {
	return &Provider{secretKey: []byte(secret), trustProxy: trustProxy}
}

// Sign issues a token. Accounts live elsewhere; this exists for tooling and tests.
func (p *Provider) Sign(userID int64, staff bool, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
		Staff:  staff,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secretKey)
}

func (p *Provider) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Identify returns the request's actor. A request without a token is
// anonymous; a request with a bad token is an error.
func (p *Provider) Identify(r *http.Request) (model.Actor, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return model.AnonymousActor(p.clientAddr(r)), nil
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return model.Actor{}, ErrInvalidToken
	}
	claims, err := p.Verify(strings.TrimSpace(token))
	if err != nil {
		return model.Actor{}, err
	}
	return model.UserActor(claims.UserID, claims.Staff), nil
}

// clientAddr is the first X-Forwarded-For hop behind a trusted proxy, else
// the peer address. Empty when neither yields a host.
func (p *Provider) clientAddr(r *http.Request) string {
	if p.trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				return ip.String()
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.String()
	}
	return ""
}

type ctxKey struct{}

func WithActor(ctx context.Context, a model.Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func ActorFrom(ctx context.Context) model.Actor {
	a, _ := ctx.Value(ctxKey{}).(model.Actor)
	return a
}
