package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

// TokenTypeAutoLogin marks single-holder auto-login credentials. Regular
// session tokens carry no type claim.
const TokenTypeAutoLogin = "auto_login"

// Claims holds JWT claims. Subject is the username; ID is the jti matched
// against the session (or auto-login) record.
type Claims struct {
	Type string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// JWTService signs and validates bearer tokens.
type JWTService struct {
	secret           []byte
	expireHours      int
	autoLoginExpireH int
}

// NewJWTService creates a JWT service.
func NewJWTService(secret string, expireHours, autoLoginExpireHours int) *JWTService {
	return &JWTService{
		secret:           []byte(secret),
		expireHours:      expireHours,
		autoLoginExpireH: autoLoginExpireHours,
	}
}

// GenerateSession creates a session bearer for the user. The returned jti is
// persisted as the session key; expiresAt matches the token expiry.
func (s *JWTService) GenerateSession(username string) (token, jti string, expiresAt time.Time, err error) {
	jti = uuid.New().String()
	expiresAt = time.Now().Add(time.Duration(s.expireHours) * time.Hour)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        jti,
		},
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	return token, jti, expiresAt, err
}

// GenerateAutoLogin creates an auto-login bearer. The returned tokenID is the
// jti stored in the single-holder record.
func (s *JWTService) GenerateAutoLogin(username string) (token, tokenID string, err error) {
	tokenID = uuid.New().String()
	claims := Claims{
		Type: TokenTypeAutoLogin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(s.autoLoginExpireH) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        tokenID,
		},
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	return token, tokenID, err
}

// Validate parses and validates a bearer, returning claims or error.
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
