package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/gym-class-booking/internal/utils"
)

const testSecret = "middleware-test-secret"

func doRequest(t *testing.T, mw []echo.MiddlewareFunc, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	return rec
}

func TestJWTAuthAcceptsValidToken(t *testing.T) {
	access, err := utils.NewAccessToken(testSecret, 42, "MEMBER", 5)
	require.NoError(t, err)

	rec := doRequest(t, []echo.MiddlewareFunc{JWTAuth(testSecret)}, "Bearer "+access.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTAuthRejectsMissingAndBadTokens(t *testing.T) {
	mw := []echo.MiddlewareFunc{JWTAuth(testSecret)}

	rec := doRequest(t, mw, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, mw, "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other, err := utils.NewAccessToken("some-other-secret", 42, "MEMBER", 5)
	require.NoError(t, err)
	rec = doRequest(t, mw, "Bearer "+other.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRoleEnforcesAllowedSet(t *testing.T) {
	member, err := utils.NewAccessToken(testSecret, 1, "MEMBER", 5)
	require.NoError(t, err)
	admin, err := utils.NewAccessToken(testSecret, 2, "ADMIN", 5)
	require.NoError(t, err)

	adminOnly := []echo.MiddlewareFunc{JWTAuth(testSecret), RequireRole("ADMIN")}

	rec := doRequest(t, adminOnly, "Bearer "+admin.Token)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, adminOnly, "Bearer "+member.Token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRoleWithoutAuthIsForbidden(t *testing.T) {
	e := echo.New()
	h := RequireRole("MEMBER")(func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
