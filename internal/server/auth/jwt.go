// Package auth mints and verifies the signed access and refresh tokens and
// carries the verified identity through request contexts.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sujinchoi3/my-todolist/internal/common"
)

// Identity is what a token asserts about its bearer.
type Identity struct {
	UserID string
	Email  string
}

// Claims is the JWT payload for both token kinds.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Key is one secret/lifetime pair.
type Key struct {
	Secret   []byte
	Validity time.Duration
}

// Issuer signs and verifies access and refresh tokens. The two kinds use
// independent secrets, so a token minted as one kind never verifies as the
// other.
type Issuer struct {
	access  Key
	refresh Key
	now     func() time.Time
}

// NewIssuer validates both keys and returns an Issuer.
func NewIssuer(access, refresh Key) (*Issuer, error) {
	if len(access.Secret) == 0 || len(refresh.Secret) == 0 {
		return nil, errors.New("token secrets must not be empty")
	}
	if string(access.Secret) == string(refresh.Secret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	return &Issuer{access: access, refresh: refresh, now: time.Now}, nil
}

func (i *Issuer) IssueAccess(id Identity) (string, error) {
	return GenerateToken(id, i.access.Secret, i.access.Validity, i.now())
}

func (i *Issuer) IssueRefresh(id Identity) (string, error) {
	return GenerateToken(id, i.refresh.Secret, i.refresh.Validity, i.now())
}

func (i *Issuer) VerifyAccess(token string) (Identity, error) {
	return ParseToken(token, i.access.Secret)
}

func (i *Issuer) VerifyRefresh(token string) (Identity, error) {
	return ParseToken(token, i.refresh.Secret)
}

// RefreshValidity is the refresh token lifetime, used for the cookie Max-Age.
func (i *Issuer) RefreshValidity() time.Duration { return i.refresh.Validity }

func GenerateToken(id Identity, secretKey []byte, validity time.Duration, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		UserID: id.UserID,
		Email:  id.Email,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return tokenString, nil
}

// ParseToken verifies tokenString against secretKey. Every failure wraps
// common.ErrInvalidToken; the underlying jwt error stays in the chain so
// callers can log the distinct cause.
func ParseToken(tokenString string, secretKey []byte) (Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.UserID == "" {
		return Identity{}, common.ErrInvalidToken
	}

	return Identity{UserID: claims.UserID, Email: claims.Email}, nil
}
