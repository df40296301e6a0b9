package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alertrouter/internal/models"
	"github.com/alertrouter/internal/store/storetest"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Authenticator, *models.User, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := storetest.New(t)
	user := &models.User{Username: "oncall", Role: models.RoleUser, Email: "oncall@example.com", IsActive: true}
	require.NoError(t, user.SetPassword("hunter2"))
	require.NoError(t, s.CreateUser(context.Background(), user))

	a := NewAuthenticator("test-secret", time.Hour, s)

	r := gin.New()
	r.GET("/me", a.Middleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(ContextUserID)})
	})
	r.GET("/admin", a.Middleware(), RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return a, user, r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginAndMiddleware(t *testing.T) {
	a, user, r := setup(t)

	token, got, err := a.Login(context.Background(), "oncall", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	w := do(r, "/me", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), user.ID)

	w = do(r, "/admin", token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	a, _, _ := setup(t)
	_, _, err := a.Login(context.Background(), "oncall", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestMiddlewareRejects(t *testing.T) {
	a, user, r := setup(t)

	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "garbage").Code)

	other := NewAuthenticator("other-secret", time.Hour, nil)
	forged, err := other.GenerateToken(user)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", forged).Code)

	a.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := a.GenerateToken(user)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", expired).Code)
}
