package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Ticker string `query:"ticker" json:"ticker" validate:"required"`
	Limit  int    `query:"limit" json:"limit" default:"8" validate:"gte=1,lte=20"`
}

func TestReadAndValidateRequestDefaults(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?ticker=AAPL", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	var r sampleRequest
	assert.Nil(t, ReadAndValidateRequest(c, &r))
	assert.Equal(t, "AAPL", r.Ticker)
	assert.Equal(t, 8, r.Limit)
}

func TestReadAndValidateRequestErrors(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?limit=50", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	var r sampleRequest
	out := ReadAndValidateRequest(c, &r)
	require.NotNil(t, out)
	errs, ok := out.([]ValidationError)
	require.True(t, ok)
	codes := map[string]string{}
	for _, ve := range errs {
		codes[ve.Field] = ve.Code
	}
	assert.Equal(t, "ERR_REQUIRED", codes["ticker"])
	assert.Equal(t, "ERR_LTE", codes["limit"])
}

func TestDefaultAndValidate(t *testing.T) {
	r := sampleRequest{Ticker: "MSFT"}
	assert.Nil(t, DefaultAndValidate(context.Background(), &r))
	assert.Equal(t, 8, r.Limit)

	bad := sampleRequest{}
	errs := DefaultAndValidate(context.Background(), &bad)
	require.Len(t, errs, 1)
	assert.Equal(t, "ticker is required", errs[0].Message)
}

type scanSample struct {
	Tickers []string `json:"tickers" validate:"required,min=1,max=2,dive,required"`
	Events  int      `json:"max_events" default:"4" validate:"gte=1,lte=20"`
}

func TestDefaultAndValidate_WireNamesAndMessages(t *testing.T) {
	errs := DefaultAndValidate(context.Background(), &scanSample{Tickers: []string{"A", "B", "C"}, Events: 30})
	require.Len(t, errs, 2)

	byField := map[string]ValidationError{}
	for _, e := range errs {
		byField[e.Field] = e
	}
	assert.Equal(t, "tickers allows at most 2 items", byField["tickers"].Message)
	assert.Equal(t, map[string]interface{}{"max": "2"}, byField["tickers"].Params)
	assert.Equal(t, "max_events must be at most 20", byField["max_events"].Message)
	assert.Equal(t, "ERR_LTE", byField["max_events"].Code)
}
