package response_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vecinal/backend/pkg/apperr"
	"github.com/vecinal/backend/pkg/response"
)

func TestStatusOf(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.KindValidation:      http.StatusBadRequest,
		apperr.KindBusiness:        http.StatusBadRequest,
		apperr.KindUnauthenticated: http.StatusUnauthorized,
		apperr.KindForbidden:       http.StatusForbidden,
		apperr.KindNotFound:        http.StatusNotFound,
		apperr.KindConflict:        http.StatusConflict,
		apperr.KindGone:            http.StatusGone,
		apperr.KindRateLimited:     http.StatusTooManyRequests,
		apperr.KindTimeout:         http.StatusGatewayTimeout,
		apperr.KindInternal:        http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, response.StatusOf(kind))
	}
}

func perform(handler gin.HandlerFunc) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	handler(c)
	return w
}

func TestErrorEnvelope(t *testing.T) {
	t.Run("typed error", func(t *testing.T) {
		w := perform(func(c *gin.Context) {
			response.Error(c, apperr.Gone(apperr.CodeAutoLoginSuperseded, "token was superseded"))
		})
		require.Equal(t, http.StatusGone, w.Code)

		var body response.Failure
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.False(t, body.Success)
		assert.Equal(t, http.StatusGone, body.StatusCode)
		assert.Equal(t, apperr.CodeAutoLoginSuperseded, body.ErrorCode)
		assert.Equal(t, "token was superseded", body.Message)
		assert.NotEmpty(t, body.Timestamp)
	})

	t.Run("unknown error becomes 500", func(t *testing.T) {
		w := perform(func(c *gin.Context) {
			response.Error(c, errors.New("boom"))
		})
		require.Equal(t, http.StatusInternalServerError, w.Code)

		var body response.Failure
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, apperr.CodeInternal, body.ErrorCode)
	})

	t.Run("rate limited carries retry-after", func(t *testing.T) {
		w := perform(func(c *gin.Context) {
			response.Error(c, apperr.RateLimited(60))
		})
		require.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "60", w.Header().Get("Retry-After"))
	})
}

func TestSuccessEnvelope(t *testing.T) {
	w := perform(func(c *gin.Context) {
		response.OK(c, "done", gin.H{"id": 7})
	})
	require.Equal(t, http.StatusOK, w.Code)

	var body response.Success
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, http.StatusOK, body.StatusCode)
	assert.Equal(t, "done", body.Message)
}
