package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/suteetoe/leasedesk/internal/apperror"
	"github.com/suteetoe/leasedesk/pkg/config"
	"github.com/suteetoe/leasedesk/pkg/jwtutil"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(header string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/leases", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAuthMiddleware(t *testing.T) {
	j := jwtutil.NewJWTUtil(&config.JWTConfig{SigningKey: "k", ExpirationHours: 1})
	token, err := j.GenerateToken("ana@example.com", 3, "ADMIN")
	require.NoError(t, err)

	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }

	t.Run("valid token", func(t *testing.T) {
		c, rec := newContext("Bearer " + token)
		require.NoError(t, AuthMiddleware(j)(ok)(c))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, uint(3), c.Get("user_id"))
		assert.Equal(t, "ADMIN", c.Get("role"))
	})

	t.Run("missing token", func(t *testing.T) {
		c, _ := newContext("")
		err := AuthMiddleware(j)(ok)(c)
		assert.Equal(t, http.StatusUnauthorized, apperror.As(err).StatusCode)
	})

	t.Run("garbage token", func(t *testing.T) {
		c, _ := newContext("Bearer nope")
		err := AuthMiddleware(j)(ok)(c)
		assert.Equal(t, apperror.CodeUnauthorized, apperror.As(err).Code)
	})
}

func TestRequireRole(t *testing.T) {
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }

	c, _ := newContext("")
	c.Set("role", "STAFF")
	err := RequireRole("ADMIN")(ok)(c)
	assert.Equal(t, http.StatusForbidden, apperror.As(err).StatusCode)

	c, rec := newContext("")
	c.Set("role", "admin")
	require.NoError(t, RequireRole("ADMIN")(ok)(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
