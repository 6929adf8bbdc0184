package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "z-app"

var errInvalidToken = errors.New("invalid or expired token")

// identity is what a validated token resolves to.
type identity struct {
	ID        string
	Anonymous bool
	Role      string
}

func (h *Handler) signToken(id string, anonymous bool, role string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  id,
		"anon": anonymous,
		"exp":  time.Now().Add(72 * time.Hour).Unix(),
		"iss":  tokenIssuer,
	}
	if role != "" {
		claims["role"] = role
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.jwtSecret)
}

func (h *Handler) validateToken(tokenString string) (identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return h.jwtSecret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return identity{}, errInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return identity{}, errInvalidToken
	}

	id, _ := claims["sub"].(string)
	if id == "" {
		return identity{}, errInvalidToken
	}
	anon, _ := claims["anon"].(bool)
	role, _ := claims["role"].(string)
	return identity{ID: id, Anonymous: anon, Role: role}, nil
}

// bearerIdentity extracts and validates the Authorization header.
func (h *Handler) bearerIdentity(c *gin.Context) (identity, error) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return identity{}, errInvalidToken
	}
	return h.validateToken(strings.TrimPrefix(header, "Bearer "))
}

// GetAnonToken mints a fresh anonymous identity. Guests use it to open
// the WebSocket and join the stranger queue without an account.
func (h *Handler) GetAnonToken(c *gin.Context) {
	anonID := uuid.New().String()
	token, err := h.signToken(anonID, true, "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "anon_id": anonID})
}

// RequireUser is middleware for endpoints that need a registered
// (non-anonymous) account.
func (h *Handler) RequireUser(c *gin.Context) {
	ident, err := h.bearerIdentity(c)
	if err != nil || ident.Anonymous {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.Set("user_id", ident.ID)
	c.Next()
}

// RequireAdmin is middleware for the admin surface.
func (h *Handler) RequireAdmin(c *gin.Context) {
	ident, err := h.bearerIdentity(c)
	if err != nil || ident.Role != "admin" {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
		return
	}
	c.Set("user_id", ident.ID)
	c.Next()
}
