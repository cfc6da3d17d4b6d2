// Package auth resolves bearer credentials to chat users.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"lingochat/backend/internal/models"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoIdentity covers every reason a credential does not resolve to a usable user.
var ErrNoIdentity = errors.New("no identity")

const (
	accessTokenType = "access"
	issuer          = "lingochat"
)

// Claims mirrors the access tokens issued by the account service. user_id arrives
// either as a number or as a numeric string.
type Claims struct {
	UserID    json.Number `json:"user_id"`
	TokenType string      `json:"token_type,omitempty"`
	jwt.RegisteredClaims
}

// IdentityStore is the slice of storage the authenticator needs.
type IdentityStore interface {
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	IsUserBanned(ctx context.Context, id uint) (bool, error)
}

type Authenticator struct {
	secret []byte
	users  IdentityStore
}

func NewAuthenticator(secret string, users IdentityStore) *Authenticator {
	return &Authenticator{secret: []byte(secret), users: users}
}

// GenerateToken issues an HS256 access token for userID.
func (a *Authenticator) GenerateToken(userID uint, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:    json.Number(strconv.FormatUint(uint64(userID), 10)),
		TokenType: accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ParseToken verifies the signature and expiry and returns the user id it carries.
func (a *Authenticator) ParseToken(tokenString string) (uint, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return 0, errors.New("invalid token")
	}
	if claims.TokenType != "" && claims.TokenType != accessTokenType {
		return 0, fmt.Errorf("token type %q is not an access token", claims.TokenType)
	}

	id, err := strconv.ParseUint(claims.UserID.String(), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("bad user_id claim %q", claims.UserID)
	}
	return uint(id), nil
}

// Authenticate resolves a raw credential to an active, non-banned user.
// Every failure collapses to ErrNoIdentity.
func (a *Authenticator) Authenticate(ctx context.Context, tokenString string) (*models.User, error) {
	if tokenString == "" {
		return nil, ErrNoIdentity
	}

	userID, err := a.ParseToken(tokenString)
	if err != nil {
		log.Printf("WARNING: Rejected token: %v", err)
		return nil, ErrNoIdentity
	}

	user, err := a.users.GetUserByID(ctx, userID)
	if err != nil {
		log.Printf("WARNING: Token for user %d does not resolve: %v", userID, err)
		return nil, ErrNoIdentity
	}
	if !user.IsActive {
		return nil, ErrNoIdentity
	}

	banned, err := a.users.IsUserBanned(ctx, userID)
	if err != nil {
		log.Printf("ERROR: Ban lookup failed for user %d, letting through: %v", userID, err)
	}
	if banned {
		log.Printf("INFO: Refused banned user %d", userID)
		return nil, ErrNoIdentity
	}

	return user, nil
}

// TokenFromRequest reads the credential from the token query parameter, falling back
// to an Authorization: Bearer header.
func TokenFromRequest(r *http.Request) string {
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token
	}

	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
