package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ingestion-portal/internal/config"
	perrors "ingestion-portal/pkg/errors"
)

// Claims are the bearer token claims issued by the identity provider.
type Claims struct {
	jwt.RegisteredClaims
	ObjectID          string   `json:"oid,omitempty"`
	Email             string   `json:"email,omitempty"`
	PreferredUsername string   `json:"preferred_username,omitempty"`
	GivenName         string   `json:"given_name,omitempty"`
	FamilyName        string   `json:"family_name,omitempty"`
	Groups            []string `json:"groups,omitempty"`
}

// Principal is the authenticated caller.
type Principal struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	GivenName string   `json:"given_name"`
	Surname   string   `json:"surname"`
	Groups    []string `json:"-"`
}

type Verifier struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

func NewVerifier(cfg config.AuthConfig) *Verifier {
	return &Verifier{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      time.Now,
	}
}

// Verify checks an HS256 bearer token and returns its principal.
func (v *Verifier) Verify(token string) (*Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", perrors.ErrUnauthorized)
		}
		return nil, fmt.Errorf("%w: %v", perrors.ErrUnauthorized, err)
	}

	p := &Principal{
		ID:        claims.ObjectID,
		Email:     claims.Email,
		GivenName: claims.GivenName,
		Surname:   claims.FamilyName,
		Groups:    claims.Groups,
	}
	if p.ID == "" {
		p.ID = claims.Subject
	}
	if p.Email == "" {
		p.Email = claims.PreferredUsername
	}
	p.Email = strings.ToLower(p.Email)

	if p.ID == "" || p.Email == "" {
		return nil, fmt.Errorf("%w: token has no subject or email", perrors.ErrUnauthorized)
	}
	return p, nil
}

// Issue signs a token for p. Used by operator tooling and tests.
func (v *Verifier) Issue(p Principal, ttl time.Duration) (string, error) {
	now := v.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		ObjectID:   p.ID,
		Email:      p.Email,
		GivenName:  p.GivenName,
		FamilyName: p.Surname,
		Groups:     p.Groups,
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
