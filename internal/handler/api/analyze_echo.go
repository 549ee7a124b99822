package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"EarnRev/internal/domain/models"
	"EarnRev/internal/service/ratelimit"
	"EarnRev/internal/usecase"
	xhttp "EarnRev/pkg/http"
	xlogger "EarnRev/pkg/logger"
	"EarnRev/pkg/queue"
)

// HealthCheck probes one dependency; nil means healthy.
type HealthCheck func(ctx context.Context) error

// AnalyzeEchoHandler serves the backtest API.
type AnalyzeEchoHandler struct {
	logger   *xlogger.Logger
	analyzer usecase.Analyzer
	queue    queue.Publisher
	rl       *ratelimit.Limiter
	checks   map[string]HealthCheck
	now      func() time.Time
}

type HandlerOption func(*AnalyzeEchoHandler)

// WithQueue enables POST /api/scan.
func WithQueue(q queue.Publisher) HandlerOption {
	return func(h *AnalyzeEchoHandler) { h.queue = q }
}

// WithRateLimiter limits /api/analyze per client IP.
func WithRateLimiter(rl *ratelimit.Limiter) HandlerOption {
	return func(h *AnalyzeEchoHandler) { h.rl = rl }
}

func WithHealthCheck(name string, check HealthCheck) HandlerOption {
	return func(h *AnalyzeEchoHandler) {
		if check != nil {
			h.checks[name] = check
		}
	}
}

func NewAnalyzeEchoHandler(logger *xlogger.Logger, analyzer usecase.Analyzer, opts ...HandlerOption) *AnalyzeEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	h := &AnalyzeEchoHandler{
		logger:   logger,
		analyzer: analyzer,
		checks:   map[string]HealthCheck{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *AnalyzeEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/health", h.Health)
	g.GET("/analyze", h.Analyze)
	g.POST("/scan", h.Scan)
}

func (h *AnalyzeEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	res := xhttp.HealthStatus{Status: "ok", Time: h.now().UTC().Format(time.RFC3339)}
	if len(h.checks) > 0 {
		res.Checks = make(map[string]string, len(h.checks))
		for name, check := range h.checks {
			if err := check(ctx); err != nil {
				res.Checks[name] = err.Error()
				res.Status = "degraded"
				continue
			}
			res.Checks[name] = "ok"
		}
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalyzeEchoHandler) Analyze(c echo.Context) error {
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.rl != nil && !h.rl.Allow(c.RealIP()) {
		h.logger.Warn("analyze rate_limited", xlogger.String("remote", c.RealIP()))
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded, retry shortly"))
	}

	res, err := h.analyzer.Analyze(c.Request().Context(), usecase.AnalyzeParams{
		Ticker:    req.Ticker,
		MaxEvents: req.MaxEvents,
	})
	if err != nil {
		h.logger.Error("analyze usecase error", xlogger.String("ticker", req.Ticker), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, domainErrors.Resolve(err, "analysis failed"))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=300")
	return xhttp.SuccessResponse(c, res)
}

type scanAccepted struct {
	Queued  int      `json:"queued"`
	Tickers []string `json:"tickers"`
	JobType string   `json:"job_type"`
}

func (h *AnalyzeEchoHandler) Scan(c echo.Context) error {
	if h.queue == nil {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("ERR_QUEUE_DISABLED", "job queue is not configured"))
	}
	req := &models.ScanRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	tickers := make([]string, 0, len(req.Tickers))
	seen := make(map[string]struct{}, len(req.Tickers))
	for _, raw := range req.Tickers {
		t, err := models.NormalizeTicker(raw)
		if err != nil {
			return xhttp.AppErrorResponse(c, domainErrors.Resolve(err, "invalid ticker").WithParam("ticker", raw))
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		tickers = append(tickers, t)
	}

	ctx := c.Request().Context()
	for i, t := range tickers {
		payload := models.AnalyzeJobPayload{Ticker: t, MaxEvents: req.MaxEvents}
		if err := h.queue.PublishMessage(ctx, usecase.AnalyzeJobType, payload); err != nil {
			h.logger.Error("scan enqueue failed", xlogger.String("ticker", t), xlogger.Error(err))
			return xhttp.AppErrorResponse(c, xhttp.InternalError("failed to enqueue scan").
				WithError(err).
				WithParam("queued", i))
		}
	}
	h.logger.Info("scan enqueued", xlogger.Int("tickers", len(tickers)), xlogger.Int("max_events", req.MaxEvents))
	return xhttp.AcceptedResponse(c, scanAccepted{Queued: len(tickers), Tickers: tickers, JobType: usecase.AnalyzeJobType})
}

// domainErrors maps analysis failures onto HTTP errors.
var domainErrors = xhttp.ErrorMap{
	{Target: models.ErrInvalidTicker, Code: "ERR_INVALID_TICKER", Field: "ticker", Status: http.StatusBadRequest},
	{Target: models.ErrNoEventsFound, Code: "ERR_NO_EVENTS", Field: "ticker", Status: http.StatusNotFound},
	{Target: models.ErrUpstream, Code: "ERR_UPSTREAM", Message: "upstream data provider failed", Status: http.StatusBadGateway},
}

var _ xhttp.Handler = (*AnalyzeEchoHandler)(nil)
