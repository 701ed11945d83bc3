package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
)

var ERROR_EMPTY_SECRET = errors.New("empty jwt secret")

type TokenClaims struct {
	Appid string `json:"appid"`
	User  string `json:"user"`
	jwt.StandardClaims
}

func NewTokenClaims(appid, issuer, userID string, expiresAt int64) TokenClaims {
	now := time.Now().Unix()
	return TokenClaims{
		Appid: appid,
		User:  userID,
		StandardClaims: jwt.StandardClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  now,
			NotBefore: now,
			ExpiresAt: expiresAt,
		},
	}
}

// GenToken signs the claims with HS256.
func GenToken(secret string, claims TokenClaims) (string, error) {
	if secret == "" {
		return "", ERROR_EMPTY_SECRET
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken verifies an HS256 token. An empty secret verifies nothing.
func ParseToken(secret, tokenString string) (*TokenClaims, error) {
	if secret == "" {
		return nil, ERROR_EMPTY_SECRET
	}
	var claims TokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return &claims, nil
}
