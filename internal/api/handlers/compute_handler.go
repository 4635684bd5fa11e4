package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/autopo-insights/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/insights"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/service"
)

// ComputeHandler runs single analyses on request payloads. Omitted tuning
// fields take the configured defaults; explicit values are passed through
// and validated by the engine.
type ComputeHandler struct {
	defaults insights.Options
}

func NewComputeHandler(defaults insights.Options) *ComputeHandler {
	return &ComputeHandler{defaults: defaults}
}

type forecastRequest struct {
	Series      []domain.PeriodPoint `json:"series"`
	Alpha       *float64             `json:"alpha"`
	Horizon     *int                 `json:"horizon"`
	Granularity string               `json:"granularity"`
}

type anomalyRequest struct {
	Series    []domain.PeriodPoint `json:"series"`
	Threshold *float64             `json:"threshold"`
}

type segmentRequest struct {
	Entities      []domain.EntityFeatureVector `json:"entities"`
	K             *int                         `json:"k"`
	MaxIterations *int                         `json:"max_iterations"`
	Normalize     *bool                        `json:"normalize"`
}

type recommendRequest struct {
	Matrix       domain.RatingMatrix  `json:"matrix"`
	Interactions []domain.Interaction `json:"interactions"`
	Target       string               `json:"target"`
	Limit        *int                 `json:"limit"`
}

type inventoryRequest struct {
	Items      []domain.InventoryItem `json:"items"`
	SafetyDays float64                `json:"safety_days"`
	CoverDays  float64                `json:"cover_days"`
}

func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return false
	}
	return true
}

func (h *ComputeHandler) Forecast(c *gin.Context) {
	var req forecastRequest
	if !bind(c, &req) {
		return
	}

	opts := h.defaults.Forecast
	if req.Alpha != nil {
		opts.Alpha = *req.Alpha
	}
	if req.Horizon != nil {
		opts.Horizon = *req.Horizon
	}
	if req.Granularity != "" {
		g, ok := domain.ParseGranularity(req.Granularity)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid granularity", "details": req.Granularity})
			return
		}
		opts.Granularity = g
	}

	report, err := service.ComputeForecast(req.Series, opts)
	if err != nil {
		respondError(c, "failed to compute forecast", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *ComputeHandler) Anomalies(c *gin.Context) {
	var req anomalyRequest
	if !bind(c, &req) {
		return
	}

	threshold := h.defaults.AnomalyThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	anomalies, err := service.ComputeAnomalies(req.Series, threshold)
	if err != nil {
		respondError(c, "failed to detect anomalies", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"anomalies": anomalies})
}

func (h *ComputeHandler) Segments(c *gin.Context) {
	var req segmentRequest
	if !bind(c, &req) {
		return
	}

	opts := h.defaults.Segment
	if req.K != nil {
		opts.K = *req.K
	}
	if req.MaxIterations != nil {
		opts.MaxIterations = *req.MaxIterations
	}
	if req.Normalize != nil {
		opts.Normalize = *req.Normalize
	}

	report, err := service.ComputeSegments(req.Entities, opts, h.defaults.Labels)
	if err != nil {
		respondError(c, "failed to compute segments", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *ComputeHandler) Recommendations(c *gin.Context) {
	var req recommendRequest
	if !bind(c, &req) {
		return
	}

	limit := h.defaults.RecommendLimit
	if req.Limit != nil {
		limit = *req.Limit
	}

	recs, err := service.ComputeRecommendations(req.Matrix, req.Interactions, req.Target, limit)
	if err != nil {
		respondError(c, "failed to compute recommendations", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"entity":          req.Target,
		"recommendations": recs,
	})
}

func (h *ComputeHandler) Replenishment(c *gin.Context) {
	var req inventoryRequest
	if !bind(c, &req) {
		return
	}

	safety, cover := req.SafetyDays, req.CoverDays
	if safety <= 0 {
		safety = h.defaults.SafetyDays
	}
	if cover <= 0 {
		cover = h.defaults.CoverDays
	}

	suggestions, err := service.ComputeReplenishment(req.Items, safety, cover)
	if err != nil {
		respondError(c, "failed to compute replenishment", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items": suggestions,
		"total": len(suggestions),
	})
}

func (h *ComputeHandler) ABC(c *gin.Context) {
	var req inventoryRequest
	if !bind(c, &req) {
		return
	}

	entries, err := service.ComputeABC(req.Items)
	if err != nil {
		respondError(c, "failed to classify inventory", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items": entries,
		"total": len(entries),
	})
}
