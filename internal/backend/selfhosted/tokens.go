package selfhosted

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var errInvalidToken = errors.New("invalid access token")

type tokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func newTokenIssuer(cfg Config, now func() time.Time) *tokenIssuer {
	access := cfg.AccessTTL
	if access <= 0 {
		access = time.Hour
	}
	refresh := cfg.RefreshTTL
	if refresh <= 0 {
		refresh = 30 * 24 * time.Hour
	}
	return &tokenIssuer{
		secret:     []byte(cfg.JWTSecret),
		accessTTL:  access,
		refreshTTL: refresh,
		now:        now,
	}
}

func (t *tokenIssuer) sign(userID, email string) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.accessTTL)
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"role":  "authenticated",
		"iat":   now.Unix(),
		"exp":   exp.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// verify returns the subject of a valid, unexpired token.
func (t *tokenIssuer) verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenMalformed
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil || !token.Valid {
		return "", errInvalidToken
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errInvalidToken
	}
	return sub, nil
}
