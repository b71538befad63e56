// Package auth handles agent sessions: bcrypt-hashed passwords and
// HS256-signed bearer tokens carrying the agent identity.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const issuer = "quorum"

type Auth struct {
	secret []byte
	expiry time.Duration
}

// Claims is the signed payload of a session token.
type Claims struct {
	AgentID string `json:"agent_id"`
	Handle  string `json:"handle"`
	jwt.RegisteredClaims
}

func New(secret string, expiryMinutes int) *Auth {
	return &Auth{
		secret: []byte(secret),
		expiry: time.Duration(expiryMinutes) * time.Minute,
	}
}

func (a *Auth) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

func (a *Auth) CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateToken issues a session token for the agent.
func (a *Auth) GenerateToken(agentID, handle string) (string, error) {
	now := time.Now()
	claims := Claims{
		AgentID: agentID,
		Handle:  handle,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   agentID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.expiry)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ValidateToken checks signature, expiry and issuer. Only HS256 is
// accepted; tokens carrying any other alg header are rejected before the
// key is even consulted.
func (a *Auth) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{},
		func(*jwt.Token) (interface{}, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("validating token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.AgentID == "" {
		return nil, errors.New("token carries no agent identity")
	}
	return claims, nil
}

// ExtractClaims reads the bearer token from the Authorization header.
// Returns nil when the request carries no usable token, so public
// endpoints can share the same path.
func (a *Auth) ExtractClaims(r *http.Request) *Claims {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return nil
	}
	claims, err := a.ValidateToken(token)
	if err != nil {
		return nil
	}
	return claims
}
