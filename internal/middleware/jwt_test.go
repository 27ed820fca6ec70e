package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palace-events/events-api/internal/models"
	appErrors "github.com/palace-events/events-api/pkg/errors"
	"github.com/palace-events/events-api/pkg/logger"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	switch token {
	case "staff":
		return &models.JWTClaims{UserID: "staff-1", Role: models.RoleStaff}, nil
	case "member":
		return &models.JWTClaims{UserID: "member-1", Role: models.RoleCommunity, DisplayName: "Ada"}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
}

func newRouter(middlewares ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append(middlewares, func(c *gin.Context) {
		viewer := ViewerFromContext(c)
		c.JSON(http.StatusOK, gin.H{"uid": viewer.UserID, "log_uid": c.GetString(logger.UserIDKey)})
	})
	r.GET("/users/:id", handlers...)
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

func TestJWTRequiresToken(t *testing.T) {
	r := newRouter(JWT(stubValidator{}))

	assert.Equal(t, http.StatusUnauthorized, do(r, "/users/x", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/users/x", "bogus").Code)

	w := do(r, "/users/x", "member")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"uid":"member-1","log_uid":"member-1"}`, w.Body.String())
}

func TestJWTRejectsMalformedHeader(t *testing.T) {
	r := newRouter(JWT(stubValidator{}))
	req := httptest.NewRequest(http.MethodGet, "/users/x", nil)
	req.Header.Set("Authorization", "Token member")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptionalJWTFallsBackToAnonymous(t *testing.T) {
	r := newRouter(OptionalJWT(stubValidator{}))

	w := do(r, "/users/x", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"uid":"","log_uid":""}`, w.Body.String())

	w = do(r, "/users/x", "bogus")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"uid":"","log_uid":""}`, w.Body.String())

	w = do(r, "/users/x", "member")
	assert.JSONEq(t, `{"uid":"member-1","log_uid":"member-1"}`, w.Body.String())
}

func TestRequireRoles(t *testing.T) {
	r := newRouter(JWT(stubValidator{}), RequireRoles(models.RoleStaff))

	assert.Equal(t, http.StatusOK, do(r, "/users/x", "staff").Code)
	assert.Equal(t, http.StatusForbidden, do(r, "/users/x", "member").Code)
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	r := newRouter(RequireRoles(models.RoleStaff))
	assert.Equal(t, http.StatusUnauthorized, do(r, "/users/x", "").Code)
}

func TestRequireRolesNamesRoleInError(t *testing.T) {
	r := newRouter(JWT(stubValidator{}), RequireRoles(models.RoleStaff))

	w := do(r, "/users/x", "member")
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "requires role: staff")
}
