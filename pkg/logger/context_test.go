package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestFromCtxFallsBackToGlobal(t *testing.T) {
	assert.NotNil(t, FromCtx(context.Background()))
}

func TestBindSharesLoggerWithRequestContext(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	l := zap.NewNop().With(zap.String("request_id", "abc"))
	Bind(c, l)

	assert.Same(t, l, FromContext(c))
	assert.Same(t, l, FromCtx(c.Request().Context()))
}
