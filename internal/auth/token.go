package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rpattn/crmdash/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "crmdash"

var ErrInvalidToken = errors.New("invalid session token")

// Claims is the session payload. The subject is the actor id.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Tokens mints and verifies HS256 session tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens builds a signer. The secret must not be empty.
func NewTokens(secret string, ttl time.Duration) (*Tokens, error) {
	if secret == "" {
		return nil, errors.New("session secret not provided")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL is how long minted tokens stay valid.
func (t *Tokens) TTL() time.Duration {
	return t.ttl
}

// Issue signs a token for actor.
func (t *Tokens) Issue(actor domain.Actor) (string, error) {
	if actor.ID <= 0 {
		return "", errors.New("actor id must be positive")
	}
	now := t.now()
	claims := &Claims{
		Name: actor.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(actor.ID, 10),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse verifies a token and returns the actor it was issued for.
func (t *Tokens) Parse(tokenStr string) (domain.Actor, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(tok *jwt.Token) (any, error) {
		if tok.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("invalid signing method")
		}
		return t.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domain.Actor{}, ErrInvalidToken
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return domain.Actor{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return domain.Actor{ID: id, Name: claims.Name}, nil
}
