package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-core/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-access-secret-key-123456789"

func setupTestJWTService() *jwt.Service {
	return jwt.NewService(testSecret, time.Hour)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestAuthMiddleware_Success(t *testing.T) {
	jwtService := setupTestJWTService()
	router := setupTestRouter()

	memberID := uuid.New()
	phone := "0123456789"

	token, err := jwtService.GenerateAccessToken(memberID, phone, []string{jwt.RoleMember})
	require.NoError(t, err)

	router.GET("/protected", AuthMiddleware(jwtService, testLogger()), func(c *gin.Context) {
		userCtx, exists := GetUserContext(c)
		require.True(t, exists)
		member := userCtx.Member()
		c.JSON(http.StatusOK, gin.H{
			"message":   "success",
			"member_id": member.ID,
			"phone":     member.Phone,
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), memberID.String())
	assert.Contains(t, w.Body.String(), phone)
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	jwtService := setupTestJWTService()

	expired, err := jwt.NewService(testSecret, -time.Minute).GenerateAccessToken(uuid.New(), "0123456789", nil)
	require.NoError(t, err)
	foreign, err := jwt.NewService("some-other-secret", time.Hour).GenerateAccessToken(uuid.New(), "0123456789", nil)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{name: "missing header", header: "", code: "MISSING_AUTH_HEADER"},
		{name: "wrong scheme", header: "Basic abc", code: "INVALID_AUTH_FORMAT"},
		{name: "empty token", header: "Bearer   ", code: "INVALID_AUTH_FORMAT"},
		{name: "garbage token", header: "Bearer not-a-token", code: "INVALID_TOKEN"},
		{name: "expired token", header: "Bearer " + expired, code: "TOKEN_EXPIRED"},
		{name: "wrong secret", header: "Bearer " + foreign, code: "INVALID_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter()
			router.GET("/protected", AuthMiddleware(jwtService, testLogger()), func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
			})

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), tt.code)
			assert.NotContains(t, w.Body.String(), "should not reach here")
		})
	}
}

func TestGetUserContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("missing", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		_, ok := GetUserContext(c)
		assert.False(t, ok)
	})

	t.Run("wrong type", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set(UserContextKey, "not a user")
		_, ok := GetUserContext(c)
		assert.False(t, ok)
	})

	t.Run("present", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		want := UserContext{MemberID: uuid.New(), Phone: "0123456789", Roles: []string{jwt.RoleMember}}
		c.Set(UserContextKey, want)
		got, ok := GetUserContext(c)
		require.True(t, ok)
		assert.Equal(t, want, got)
	})
}

func TestRequireRole(t *testing.T) {
	jwtService := setupTestJWTService()

	tests := []struct {
		name     string
		roles    []string
		expected int
	}{
		{name: "admin allowed", roles: []string{jwt.RoleMember, jwt.RoleAdmin}, expected: http.StatusOK},
		{name: "member forbidden", roles: []string{jwt.RoleMember}, expected: http.StatusForbidden},
		{name: "no roles forbidden", roles: nil, expected: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter()
			router.GET("/admin", AuthMiddleware(jwtService, testLogger()), RequireRole(jwt.RoleAdmin), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			token, err := jwtService.GenerateAccessToken(uuid.New(), "0123456789", tt.roles)
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expected, w.Code)
		})
	}

	t.Run("without auth middleware", func(t *testing.T) {
		router := setupTestRouter()
		router.GET("/admin", RequireRole(jwt.RoleAdmin), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "MISSING_USER_CONTEXT")
	})
}
