package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"live-quiz-backend/internal/middleware"
)

type staticValidator struct {
	token  string
	hostID uint
}

func (v staticValidator) ValidateToken(token string) (uint, error) {
	if token != v.token {
		return 0, errors.New("bad token")
	}
	return v.hostID, nil
}

func TestJWTAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(middleware.RequestLogger(zap.NewNop()))
	engine.GET("/private", middleware.JWTAuth(staticValidator{token: "good", hostID: 7}), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"host_id": c.GetUint("host_id")})
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"bad token", "Bearer bad", http.StatusUnauthorized},
		{"valid token", "Bearer good", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"host_id":7}`, rec.Body.String())
			} else {
				assert.Contains(t, rec.Body.String(), `"code":"UNAUTHORIZED"`)
			}
		})
	}
}
