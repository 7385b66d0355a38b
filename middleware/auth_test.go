package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mayurimulay789/e-commerce21-sub001/models"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", ValidateToken, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c)})
	})
	r.GET("/admin", ValidateToken, RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/marketing", ValidateToken, RequireRole(models.RoleAdmin, models.RoleMarketer), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestValidateToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "unit-secret")
	r := authRouter()

	t.Run("missing header", func(t *testing.T) {
		w := get(r, "/me", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		w := get(r, "/me", "not.a.jwt")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := signToken(t, "other-secret", jwt.MapClaims{"user_id": "u1"})
		w := get(r, "/me", token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		token := signToken(t, "unit-secret", jwt.MapClaims{
			"user_id": "u1",
			"exp":     time.Now().Add(-time.Hour).Unix(),
		})
		w := get(r, "/me", token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing user id claim", func(t *testing.T) {
		token := signToken(t, "unit-secret", jwt.MapClaims{"role": "admin"})
		w := get(r, "/me", token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token := signToken(t, "unit-secret", jwt.MapClaims{"user_id": "u1", "role": "user"})
		w := get(r, "/me", token)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "u1")
	})
}

func TestRequireRole(t *testing.T) {
	t.Setenv("JWT_SECRET", "unit-secret")
	r := authRouter()

	userToken := signToken(t, "unit-secret", jwt.MapClaims{"user_id": "u1", "role": "user"})
	adminToken := signToken(t, "unit-secret", jwt.MapClaims{"user_id": "a1", "role": "admin"})
	marketerToken := signToken(t, "unit-secret", jwt.MapClaims{"user_id": "m1", "role": "marketer"})
	// An unknown role falls back to plain user.
	bogusToken := signToken(t, "unit-secret", jwt.MapClaims{"user_id": "x1", "role": "superuser"})

	assert.Equal(t, http.StatusForbidden, get(r, "/admin", userToken).Code)
	assert.Equal(t, http.StatusForbidden, get(r, "/admin", marketerToken).Code)
	assert.Equal(t, http.StatusForbidden, get(r, "/admin", bogusToken).Code)
	assert.Equal(t, http.StatusOK, get(r, "/admin", adminToken).Code)

	assert.Equal(t, http.StatusOK, get(r, "/marketing", adminToken).Code)
	assert.Equal(t, http.StatusOK, get(r, "/marketing", marketerToken).Code)
	assert.Equal(t, http.StatusForbidden, get(r, "/marketing", userToken).Code)
}
