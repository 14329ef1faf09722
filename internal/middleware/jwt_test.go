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

	"studenthub/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestIssueAndParse(t *testing.T) {
	tokens := NewTokens("s3cret", time.Hour)
	raw, err := tokens.Issue(model.Actor{ID: "u-1", Email: "ravi@example.com", Roles: []string{model.RoleAdmin}})
	require.NoError(t, err)

	actor, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "u-1", actor.ID)
	assert.True(t, actor.HasRole(model.RoleAdmin))

	_, err = NewTokens("other", time.Hour).Parse(raw)
	assert.ErrorIs(t, err, model.ErrAuthRequired)
}

func TestParseRejectsOtherAlgorithms(t *testing.T) {
	claims := jwt.MapClaims{"sub": "u-1", "exp": time.Now().Add(time.Hour).Unix()}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	_, err = NewTokens("s3cret", time.Hour).Parse(raw)
	assert.ErrorIs(t, err, model.ErrAuthRequired)
}

func TestParseRejectsExpired(t *testing.T) {
	tokens := NewTokens("s3cret", time.Minute)
	tokens.now = func() time.Time { return time.Now().Add(-time.Hour) }
	raw, err := tokens.Issue(model.Actor{ID: "u-1"})
	require.NoError(t, err)

	_, err = NewTokens("s3cret", time.Minute).Parse(raw)
	assert.ErrorIs(t, err, model.ErrAuthRequired)
}

func TestRolesFrom(t *testing.T) {
	assert.Equal(t, []string{"ADMIN"}, rolesFrom("ADMIN"))
	assert.Equal(t, []string{"USER", "ADMIN"}, rolesFrom([]interface{}{"USER", 7, "ADMIN"}))
	assert.Nil(t, rolesFrom(nil))
}

func newRouter(tokens *Tokens) *gin.Engine {
	r := gin.New()
	r.Use(OptionalAuth(tokens))
	r.GET("/open", func(c *gin.Context) {
		if a := ActorFrom(c); a != nil {
			c.String(http.StatusOK, a.ID)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})
	r.GET("/me", RequireAuth(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/admin", RequireRole(model.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
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

func TestMiddlewareChain(t *testing.T) {
	tokens := NewTokens("s3cret", time.Hour)
	r := newRouter(tokens)
	user, err := tokens.Issue(model.Actor{ID: "u-1", Roles: []string{model.RoleUser}})
	require.NoError(t, err)
	admin, err := tokens.Issue(model.Actor{ID: "a-1", Roles: []string{model.RoleAdmin}})
	require.NoError(t, err)

	assert.Equal(t, "anonymous", do(r, "/open", "").Body.String())
	assert.Equal(t, "anonymous", do(r, "/open", "garbage").Body.String())
	assert.Equal(t, "u-1", do(r, "/open", user).Body.String())

	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "").Code)
	assert.Equal(t, http.StatusNoContent, do(r, "/me", user).Code)

	assert.Equal(t, http.StatusUnauthorized, do(r, "/admin", "").Code)
	assert.Equal(t, http.StatusForbidden, do(r, "/admin", user).Code)
	assert.Equal(t, http.StatusNoContent, do(r, "/admin", admin).Code)
}
