package api

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"SignalEngine/internal/domain/models"
	"SignalEngine/internal/service/ratelimit"
	"SignalEngine/internal/usecase"
	xhttp "SignalEngine/pkg/http"
	applogger "SignalEngine/pkg/logger"
	"SignalEngine/pkg/util"
)

// SignalReader is the read side the handler serves from.
type SignalReader interface {
	List(maxAge time.Duration) []models.SignalView
	Get(symbol string, maxAge time.Duration) (models.SignalView, error)
	Plan(symbol string, price float64) (models.FibonacciPlan, error)
}

// PriceClassifier scores an ad hoc price series.
type PriceClassifier interface {
	ClassifyPrices(ctx context.Context, prices []float64) (models.ClassifyResponse, error)
}

// SignalsHandler serves the signal cache and manual classification over echo.
type SignalsHandler struct {
	signals    SignalReader
	classifier PriceClassifier
	rl         *ratelimit.Limiter
	l          *applogger.Logger
}

// NewSignalsHandler builds the handler. A nil limiter disables rate limiting
// on /api/classify.
func NewSignalsHandler(signals SignalReader, classifier PriceClassifier, rl *ratelimit.Limiter, l *applogger.Logger) *SignalsHandler {
	if l == nil {
		l = applogger.Nop()
	}
	return &SignalsHandler{signals: signals, classifier: classifier, rl: rl, l: l}
}

func (h *SignalsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/signals", h.List)
	g.GET("/signals/:symbol", h.Get)
	g.GET("/plan", h.Plan)
	g.POST("/classify", h.Classify)
}

func (h *SignalsHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status":  "ok",
		"signals": len(h.signals.List(0)),
	})
}

func (h *SignalsHandler) List(c echo.Context) error {
	maxAge, verr := maxAgeParam(c)
	if verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows := h.signals.List(maxAge)
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *SignalsHandler) Get(c echo.Context) error {
	maxAge, verr := maxAgeParam(c)
	if verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	symbol := c.Param("symbol")
	view, err := h.signals.Get(symbol, maxAge)
	if err != nil {
		return h.fail(c, "get signal", err, symbol)
	}
	return xhttp.SuccessResponse(c, view)
}

func (h *SignalsHandler) Plan(c echo.Context) error {
	req := &models.PlanRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	plan, err := h.signals.Plan(req.Symbol, req.Price)
	if err != nil {
		return h.fail(c, "plan", err, req.Symbol)
	}
	return xhttp.SuccessResponse(c, plan)
}

func (h *SignalsHandler) Classify(c echo.Context) error {
	if h.rl != nil && !h.rl.Allow(c.RealIP()+":classify") {
		h.l.Warn("classify rate limited", applogger.String("remote", c.RealIP()))
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many classification requests"))
	}

	req := &models.ClassifyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	start := time.Now()
	res, err := h.classifier.ClassifyPrices(c.Request().Context(), req.Prices)
	if err != nil {
		return h.fail(c, "classify", err, "")
	}
	h.l.Debug("classify ok",
		applogger.String("label", res.Label.String()),
		applogger.Float64("confidence", res.Confidence),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalsHandler) fail(c echo.Context, op string, err error, symbol string) error {
	switch {
	case errors.Is(err, usecase.ErrSignalNotFound):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no signal for %s yet", symbol).WithParam("symbol", symbol))
	case errors.Is(err, usecase.ErrInsufficientPrices):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("prices", err.Error()).Wrap(err))
	}
	h.l.Error(op+" failed", applogger.String("symbol", symbol), applogger.Error(err))
	return xhttp.InternalServerErrorResponse(c)
}

func maxAgeParam(c echo.Context) (time.Duration, []xhttp.ValidationError) {
	raw := c.QueryParam("max_age")
	if raw == "" {
		return 0, nil
	}
	d, ok := util.ParseDuration(raw)
	if !ok {
		return 0, []xhttp.ValidationError{{
			Code:    "ERR_INVALID",
			Field:   "max_age",
			Message: "max_age must be a duration like 5m or a number of seconds",
		}}
	}
	return d, nil
}

var _ xhttp.Handler = (*SignalsHandler)(nil)
