package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"studenthub/internal/model"
)

const actorKey = "actor"

var errNoBearer = errors.New("no bearer token")

// Tokens issues and verifies HS512 bearer tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *Tokens) Issue(a model.Actor) (string, error) {
	now := t.now()
	claims := jwt.MapClaims{
		"sub":   a.ID,
		"email": a.Email,
		"roles": a.Roles,
		"iat":   now.Unix(),
		"exp":   now.Add(t.ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies raw and returns the actor it was issued for. Only HS512 is accepted.
func (t *Tokens) Parse(raw string) (*model.Actor, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		if token.Method.Alg() != jwt.SigningMethodHS512.Alg() {
			return nil, errors.New("only HS512 is allowed")
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", model.ErrAuthRequired)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: invalid claims", model.ErrAuthRequired)
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: token has no subject", model.ErrAuthRequired)
	}
	email, _ := claims["email"].(string)
	return &model.Actor{ID: sub, Email: email, Roles: rolesFrom(claims["roles"])}, nil
}

// rolesFrom accepts a single role or a list of them.
func rolesFrom(raw interface{}) []string {
	switch roles := raw.(type) {
	case []interface{}:
		out := make([]string, 0, len(roles))
		for _, r := range roles {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return roles
	case string:
		return []string{roles}
	}
	return nil
}

func bearer(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", errNoBearer
	}
	return strings.TrimPrefix(authHeader, "Bearer "), nil
}

// OptionalAuth attaches the actor when a valid bearer token is present and lets
// anonymous requests through untouched.
func OptionalAuth(t *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := bearer(c)
		if err == nil {
			if actor, err := t.Parse(raw); err == nil {
				c.Set(actorKey, actor)
			}
		}
		c.Next()
	}
}

// RequireAuth rejects requests OptionalAuth found no actor for.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ActorFrom(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFrom(c)
		if actor == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if !actor.HasRole(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": strings.ToLower(role) + " access only"})
			return
		}
		c.Next()
	}
}

// ActorFrom returns the authenticated actor, or nil for anonymous requests.
func ActorFrom(c *gin.Context) *model.Actor {
	v, ok := c.Get(actorKey)
	if !ok {
		return nil
	}
	actor, _ := v.(*model.Actor)
	return actor
}
