package middleware

import (
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"ethiobus/internal/config"
	"ethiobus/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

func jwtSecret() []byte {
	if val := os.Getenv("JWT_SECRET"); val != "" {
		return []byte(val)
	}
	return []byte("supersecret") // fallback
}

func tokenTTL() time.Duration {
	if val := os.Getenv("JWT_EXPIRE"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return 24 * time.Hour
}

// GenerateToken issues a signed bearer token carrying the user's identity.
func GenerateToken(user models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    string(user.Role),
		"exp":     time.Now().Add(tokenTTL()).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

// UserFromToken validates a bearer token and re-fetches the account behind
// it. Deactivated or deleted accounts invalidate otherwise-valid tokens;
// that is the only revocation mechanism.
func UserFromToken(tokenStr string) (models.User, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return jwtSecret(), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.User{}, ErrTokenExpired
		}
		return models.User{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return models.User{}, ErrInvalidToken
	}
	id, ok := claims["user_id"].(float64)
	if !ok {
		return models.User{}, ErrInvalidToken
	}

	var user models.User
	if err := config.DB.First(&user, uint(id)).Error; err != nil {
		return models.User{}, ErrInvalidToken
	}
	if !user.IsActive {
		return models.User{}, ErrInvalidToken
	}
	return user, nil
}

// authenticate validates the bearer token and stores the user in the
// request context. It aborts with 401 on failure and never advances the
// handler chain, so callers decide when to continue.
func authenticate(c *gin.Context) bool {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": "No token provided, authorization denied",
		})
		return false
	}

	user, err := UserFromToken(strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		message := "Token is no longer valid"
		if errors.Is(err, ErrTokenExpired) {
			message = "Token expired"
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": message,
		})
		return false
	}

	c.Set("user", user)
	c.Set("user_id", user.ID)
	c.Set("role", user.Role)
	return true
}

// RequireAuth ensures a valid bearer token is present and stores the
// authenticated user in the request context.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c) {
			return
		}
		c.Next()
	}
}

// RequireRole ensures the authenticated user holds one of the allowed roles.
// The role is checked before any downstream handler runs.
func RequireRole(allowed ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c) {
			return
		}

		role := c.MustGet("role").(models.Role)
		for _, r := range allowed {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "Access denied. Insufficient permissions.",
		})
	}
}

// CurrentUser returns the user stored by RequireAuth.
func CurrentUser(c *gin.Context) models.User {
	return c.MustGet("user").(models.User)
}
