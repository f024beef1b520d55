// Package auth is the thin authentication wrapper: bcrypt password hashing
// and HS256 JWT session tokens. It owns no user storage.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/JLAD75/fileManagerRAG/models"
)

// Claims are the token claims carried by every session token.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Adapter handles password hashing and token issuance/verification.
type Adapter struct {
	secret     []byte
	bcryptCost int
	tokenTTL   time.Duration
}

// NewAdapter creates an adapter with the given signing secret and token TTL.
func NewAdapter(secret string, tokenTTL time.Duration) *Adapter {
	return &Adapter{
		secret:     []byte(secret),
		bcryptCost: bcrypt.DefaultCost,
		tokenTTL:   tokenTTL,
	}
}

// HashPassword generates a bcrypt hash from a plaintext password.
func (a *Adapter) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword checks a password against a bcrypt hash.
func (a *Adapter) VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateToken issues a signed session token for a user.
func (a *Adapter) GenerateToken(userID, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ParseToken verifies a token string and returns its claims.
func (a *Adapter) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.Join(models.ErrUnauthorized, err)
	}
	return claims, nil
}
