package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// UsernameKey is the context key under which AuthRequired stores the
// authenticated username.
const UsernameKey = "username"

var (
	secretOnce sync.Once
	secret     []byte
)

func jwtSecret() []byte {
	secretOnce.Do(func() {
		secret = []byte(os.Getenv("SECRET_KEY"))
	})
	return secret
}

// GenerateToken issues a 24h HS256 token for the username.
func GenerateToken(username string) (string, error) {
	claims := jwt.MapClaims{
		"sub": username,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

// TokenUsername validates a bearer token and returns the username it was
// issued for. Also used by the websocket upgrade, which carries the token as
// a query parameter.
func TokenUsername(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return jwtSecret(), nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}
	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return "", errors.New("token has no subject")
	}
	return subject, nil
}

// AuthRequired gates a route on a valid bearer token. The identity it
// resolves is trusted by everything downstream.
func AuthRequired(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
		return
	}
	tokenString := strings.TrimPrefix(header, "Bearer ")
	if tokenString == header {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
		return
	}
	username, err := TokenUsername(tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}
	c.Set(UsernameKey, username)
	c.Next()
}
