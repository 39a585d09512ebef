package server

import (
	"bytes"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/smukkama/aqi-forecast/internal/forecast"
	"github.com/smukkama/aqi-forecast/internal/presentation"
)

// Provider supplies forecasts to the handlers
type Provider interface {
	Current(ctx context.Context) (*forecast.Result, error)
	RunOnce(ctx context.Context) (*forecast.Result, error)
}

type Handler struct {
	provider Provider
	logger   logrus.FieldLogger
	opts     presentation.Options
}

func NewHandler(provider Provider, logger logrus.FieldLogger, opts presentation.Options) *Handler {
	return &Handler{provider: provider, logger: logger, opts: opts}
}

// Dashboard renders the HTML dashboard
func (h *Handler) Dashboard(c *gin.Context) {
	result, err := h.provider.Current(c.Request.Context())
	if err != nil {
		h.renderErrorPage(c, err)
		return
	}

	var buf bytes.Buffer
	if err := presentation.RenderHTML(&buf, presentation.Build(result, h.opts)); err != nil {
		h.logger.WithError(err).Error("Failed to render dashboard")
		c.String(http.StatusInternalServerError, "failed to render dashboard")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// GetForecast returns the current forecast view as JSON
func (h *Handler) GetForecast(c *gin.Context) {
	result, err := h.provider.Current(c.Request.Context())
	if err != nil {
		h.renderErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, presentation.Build(result, h.opts))
}

// RefreshForecast runs the pipeline now and returns the new view
func (h *Handler) RefreshForecast(c *gin.Context) {
	result, err := h.provider.RunOnce(c.Request.Context())
	if err != nil {
		h.renderErrorJSON(c, err)
		return
	}

	h.logger.WithField("run_id", result.RunID).Info("Forecast refreshed on request")
	c.JSON(http.StatusOK, presentation.Build(result, h.opts))
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) renderErrorJSON(c *gin.Context, err error) {
	kind := forecast.Classify(err)
	h.logger.WithError(err).WithField("kind", kind).Error("Forecast unavailable")
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "kind": kind})
}

func (h *Handler) renderErrorPage(c *gin.Context, err error) {
	kind := forecast.Classify(err)
	h.logger.WithError(err).WithField("kind", kind).Error("Forecast unavailable")

	var buf bytes.Buffer
	view := presentation.ErrorView{Title: h.opts.Title, Message: err.Error(), Kind: kind}
	if rerr := presentation.RenderError(&buf, view); rerr != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(http.StatusInternalServerError, "text/html; charset=utf-8", buf.Bytes())
}
