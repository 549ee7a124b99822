package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	applogger "EarnRev/pkg/logger"
)

func serve(e *echo.Echo, method, origin, requestID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/x", nil)
	if origin != "" {
		req.Header.Set(echo.HeaderOrigin, origin)
	}
	if requestID != "" {
		req.Header.Set(echo.HeaderXRequestID, requestID)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRecover_PanicBecomesEnvelope(t *testing.T) {
	e := echo.New()
	e.Use(RequestID(), Recover(applogger.Nop()))
	e.GET("/x", func(c echo.Context) error { panic("boom") })

	rec := serve(e, http.MethodGet, "", "req-42")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get(echo.HeaderXRequestID))
	assert.JSONEq(t,
		`{"status":500,"code":"ERR_INTERNAL","message":"Something went wrong","request_id":"req-42"}`,
		rec.Body.String())
}

func TestRequestID_AssignsWhenMissing(t *testing.T) {
	e := echo.New()
	e.Use(RequestID())
	e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, requestID(c)) })

	rec := serve(e, http.MethodGet, "", "")
	id := rec.Header().Get(echo.HeaderXRequestID)
	assert.Len(t, id, 36)
	assert.Equal(t, id, rec.Body.String())
}

func TestCORS(t *testing.T) {
	e := echo.New()
	e.Use(CORS(CORSConfig{
		AllowOrigins:  []string{"https://app.example.com"},
		AllowMethods:  []string{http.MethodGet, http.MethodOptions},
		ExposeHeaders: []string{echo.HeaderRetryAfter},
		MaxAge:        10 * time.Minute,
	}))
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.OPTIONS("/x", func(c echo.Context) error { return c.NoContent(http.StatusMethodNotAllowed) })

	rec := serve(e, http.MethodGet, "https://app.example.com", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "Retry-After", rec.Header().Get(echo.HeaderAccessControlExposeHeaders))

	rec = serve(e, http.MethodOptions, "https://app.example.com", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "GET, OPTIONS", rec.Header().Get(echo.HeaderAccessControlAllowMethods))
	assert.Equal(t, "600", rec.Header().Get(echo.HeaderAccessControlMaxAge))

	rec = serve(e, http.MethodGet, "https://evil.example.com", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}
