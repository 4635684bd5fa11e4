package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/autopo-insights/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/insights"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/service"
)

type InsightHandler struct {
	service *service.InsightService
}

func NewInsightHandler(service *service.InsightService) *InsightHandler {
	return &InsightHandler{service: service}
}

// parseOptions overlays query parameters on the configured defaults.
// Malformed numbers and unknown granularities are invalid input.
func (h *InsightHandler) parseOptions(c *gin.Context) (insights.Options, error) {
	opts := h.service.Defaults()

	parseFloat := func(param string, dst *float64) error {
		value := strings.TrimSpace(c.Query(param))
		if value == "" {
			return nil
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return domain.NewInvalidInput("query", param, "not a number: %q", value)
		}
		*dst = f
		return nil
	}
	parseInt := func(param string, dst *int) error {
		value := strings.TrimSpace(c.Query(param))
		if value == "" {
			return nil
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return domain.NewInvalidInput("query", param, "not an integer: %q", value)
		}
		*dst = n
		return nil
	}

	steps := []error{
		parseFloat("alpha", &opts.Forecast.Alpha),
		parseInt("horizon", &opts.Forecast.Horizon),
		parseFloat("threshold", &opts.AnomalyThreshold),
		parseInt("k", &opts.Segment.K),
		parseInt("max_iterations", &opts.Segment.MaxIterations),
	}
	for _, err := range steps {
		if err != nil {
			return opts, err
		}
	}

	if g := strings.TrimSpace(c.Query("granularity")); g != "" {
		parsed, ok := domain.ParseGranularity(g)
		if !ok {
			return opts, domain.NewInvalidInput("query", "granularity", "unknown granularity %q", g)
		}
		opts.Forecast.Granularity = parsed
	}

	if n := strings.TrimSpace(c.Query("normalize")); n != "" {
		b, err := strconv.ParseBool(n)
		if err != nil {
			return opts, domain.NewInvalidInput("query", "normalize", "not a boolean: %q", n)
		}
		opts.Segment.Normalize = b
	}

	return opts, nil
}

func (h *InsightHandler) GetReport(c *gin.Context) {
	opts, err := h.parseOptions(c)
	if err != nil {
		respondError(c, "invalid query", err)
		return
	}

	report, err := h.service.Report(c.Request.Context(), opts)
	if err != nil {
		respondError(c, "failed to compute report", err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *InsightHandler) GetForecast(c *gin.Context) {
	opts, err := h.parseOptions(c)
	if err != nil {
		respondError(c, "invalid query", err)
		return
	}

	forecast, err := h.service.Forecast(c.Request.Context(), opts)
	if err != nil {
		respondError(c, "failed to compute forecast", err)
		return
	}
	if forecast == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no revenue history in snapshot"})
		return
	}

	c.JSON(http.StatusOK, forecast)
}

func (h *InsightHandler) GetAnomalies(c *gin.Context) {
	opts, err := h.parseOptions(c)
	if err != nil {
		respondError(c, "invalid query", err)
		return
	}

	anomalies, err := h.service.Anomalies(c.Request.Context(), opts)
	if err != nil {
		respondError(c, "failed to detect anomalies", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"anomalies": anomalies})
}

func (h *InsightHandler) GetSegments(c *gin.Context) {
	opts, err := h.parseOptions(c)
	if err != nil {
		respondError(c, "invalid query", err)
		return
	}

	segments, err := h.service.Segments(c.Request.Context(), opts)
	if err != nil {
		respondError(c, "failed to compute segments", err)
		return
	}
	if segments == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no customers in snapshot"})
		return
	}

	c.JSON(http.StatusOK, segments)
}

func (h *InsightHandler) GetRecommendations(c *gin.Context) {
	entity := strings.TrimSpace(c.Param("entity"))
	if entity == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "entity is required"})
		return
	}

	limit := h.service.Defaults().RecommendLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit", "details": err.Error()})
			return
		}
		limit = n
	}

	recs, err := h.service.Recommendations(c.Request.Context(), entity, limit)
	if err != nil {
		respondError(c, "failed to compute recommendations", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entity":          entity,
		"recommendations": recs,
	})
}

func (h *InsightHandler) GetReplenishment(c *gin.Context) {
	var urgency domain.Urgency
	if raw := strings.TrimSpace(c.Query("urgency")); raw != "" {
		parsed, ok := domain.ParseUrgency(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid urgency", "details": raw})
			return
		}
		urgency = parsed
	}

	suggestions, err := h.service.Replenishment(c.Request.Context(), urgency)
	if err != nil {
		respondError(c, "failed to compute replenishment", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": suggestions,
		"total": len(suggestions),
	})
}

func (h *InsightHandler) GetABC(c *gin.Context) {
	var class domain.ABCClass
	if raw := strings.TrimSpace(c.Query("class")); raw != "" {
		parsed, ok := domain.ParseABCClass(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid class", "details": raw})
			return
		}
		class = parsed
	}

	entries, err := h.service.ABC(c.Request.Context(), class)
	if err != nil {
		respondError(c, "failed to classify inventory", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": entries,
		"total": len(entries),
	})
}

const defaultPeriodLimit = 12

// GetPeriods lists the history periods the configured source holds.
func (h *InsightHandler) GetPeriods(c *gin.Context) {
	limit := defaultPeriodLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit", "details": raw})
			return
		}
		limit = n
	}

	periods, err := h.service.Periods(c.Request.Context(), limit)
	if errors.Is(err, service.ErrPeriodsUnsupported) {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "periods not available", "details": err.Error()})
		return
	}
	if err != nil {
		respondError(c, "failed to list periods", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"periods": periods,
		"total":   len(periods),
	})
}

// Refresh drops cached reports so the next request reloads the snapshot.
func (h *InsightHandler) Refresh(c *gin.Context) {
	if err := h.service.Invalidate(c.Request.Context()); err != nil {
		respondError(c, "failed to invalidate cache", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func respondError(c *gin.Context, message string, err error) {
	status := http.StatusInternalServerError
	if domain.IsInvalidInput(err) {
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": message, "details": err.Error()})
}
