package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"uk.co.dudmesh.liveusers/internal/model"
)

const issuer = "liveusers"

// Issuer signs and verifies HS256 session tokens whose subject is a user id.
// A zero-value secret disables issuing.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (i *Issuer) Enabled() bool {
	return len(i.secret) > 0
}

func (i *Issuer) Issue(userID model.UserID) (string, error) {
	if !i.Enabled() {
		return "", nil
	}
	now := i.now()
	claims := jwt.StandardClaims{
		Issuer:    issuer,
		Subject:   string(userID),
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(i.ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return token, nil
}

// Verify checks the token signature and expiry and returns its subject.
func (i *Issuer) Verify(token string) (model.UserID, error) {
	if !i.Enabled() || token == "" {
		return "", model.ErrorInvalidToken
	}
	claims := &jwt.StandardClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		var verr *jwt.ValidationError
		if errors.As(err, &verr) {
			return "", fmt.Errorf("%w: %s", model.ErrorInvalidToken, verr.Error())
		}
		return "", fmt.Errorf("parsing session token: %w", err)
	}
	if !parsed.Valid || claims.Issuer != issuer {
		return "", model.ErrorInvalidToken
	}
	return model.UserID(claims.Subject), nil
}
