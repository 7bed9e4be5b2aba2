package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const claimsKey = "auth_claims"

// Claims carried by admin dashboard tokens
type Claims struct {
	UserID  uint   `json:"user_id"`
	Role    string `json:"role"`
	GroupID string `json:"group_id"`
	jwt.RegisteredClaims
}

// RequireJWT validates an HS256 Bearer token and stores its claims in the
// request locals. When roles are given the token's role must be one of them.
func RequireJWT(secret string, roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing bearer token",
			})
		}

		claims, err := ParseToken(secret, strings.TrimSpace(header[7:]))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		if len(roles) > 0 && !hasRole(claims.Role, roles) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Insufficient role",
			})
		}

		c.Locals(claimsKey, claims)
		return c.Next()
	}
}

// ParseToken verifies the signature and expiry of a token
func ParseToken(secret, tokenString string) (*Claims, error) {
	if secret == "" {
		return nil, errors.New("jwt secret not configured")
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// SignToken issues a token for the given claims; used by tests and tooling
func SignToken(secret string, claims *Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// GetClaims returns the claims stored by RequireJWT
func GetClaims(c *fiber.Ctx) (*Claims, bool) {
	claims, ok := c.Locals(claimsKey).(*Claims)
	return claims, ok
}

func hasRole(role string, allowed []string) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
