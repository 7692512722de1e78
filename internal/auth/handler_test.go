package auth_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/vecinal/backend/internal/auth"
)

func performRegister(body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	h := auth.NewHandler(nil, nil, nil, nil, zap.NewNop())
	w := httptest.NewRecorder()
	_, router := gin.CreateTestContext(w)
	router.POST("/auth/register", h.Register)

	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestRegisterRoleRestrictions(t *testing.T) {
	const base = `"username": "newuser", "password": "secret123", "full_name": "New User", "email": "new@example.com"`

	t.Run("super admin role rejected", func(t *testing.T) {
		w := performRegister(`{` + base + `, "role_id": 1}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "role_id")
	})

	t.Run("unit admin role rejected", func(t *testing.T) {
		w := performRegister(`{` + base + `, "role_id": 2}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		w := performRegister(`{` + base + `, "role_id": 9}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing body rejected", func(t *testing.T) {
		w := performRegister(`{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
