// backend-go/internal/api/handlers/recommendation_handler.go
package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
	"github.com/andresuchdata/demandcast/backend-go/internal/service"
	"github.com/gin-gonic/gin"
)

type RecommendationHandler struct {
	service *service.RecommendationService
}

func NewRecommendationHandler(service *service.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{service: service}
}

type generateRequest struct {
	Month string `json:"month"`
}

// Generate recomputes order recommendations for one order month across the
// whole catalog.
func (h *RecommendationHandler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	month, ok := parseMonth(req.Month)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be formatted as YYYY-MM"})
		return
	}

	summary, err := h.service.Generate(c.Request.Context(), month)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate recommendations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summary": summary,
		"total":   summary.Total(),
	})
}

// GeneratePair computes one pair's recommendation without persisting it.
func (h *RecommendationHandler) GeneratePair(c *gin.Context) {
	itemID := strings.TrimSpace(c.Param("item_id"))
	locationID := strings.TrimSpace(c.Query("location_id"))
	if itemID == "" || locationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "item_id and location_id are required"})
		return
	}

	month, ok := parseMonth(c.Query("month"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be formatted as YYYY-MM"})
		return
	}

	rec, err := h.service.GeneratePair(c.Request.Context(), itemID, locationID, month)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute recommendation"})
		return
	}

	c.JSON(http.StatusOK, rec)
}

func (h *RecommendationHandler) List(c *gin.Context) {
	month, ok := parseMonth(c.Query("month"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be formatted as YYYY-MM"})
		return
	}

	filter := domain.RecommendationFilter{
		Month:      month,
		LocationID: strings.TrimSpace(c.Query("location_id")),
		Urgency:    strings.ToLower(strings.TrimSpace(c.Query("urgency"))),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && page > 0 {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "100")); err == nil && size > 0 {
		filter.PageSize = size
	}

	recs, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list recommendations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recommendations": recs,
		"page":            filter.Page,
		"page_size":       filter.PageSize,
	})
}

func (h *RecommendationHandler) Summary(c *gin.Context) {
	month, ok := parseMonth(c.Query("month"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be formatted as YYYY-MM"})
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), month)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get recommendation summary"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

type reviewRequest struct {
	ConfirmedQuantity *float64 `json:"confirmed_quantity"`
	Locked            bool     `json:"locked"`
}

// Review stores a planner's confirmed quantity and lock flag on one row.
func (h *RecommendationHandler) Review(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recommendation id"})
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	if req.ConfirmedQuantity != nil && *req.ConfirmedQuantity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "confirmed_quantity must be non-negative"})
		return
	}

	rec, err := h.service.Review(c.Request.Context(), id, req.ConfirmedQuantity, req.Locked)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update recommendation"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "recommendation not found"})
		return
	}

	c.JSON(http.StatusOK, rec)
}

// parseMonth accepts YYYY-MM; empty means the current month.
func parseMonth(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, true
	}
	month, err := time.Parse("2006-01", raw)
	if err != nil {
		return time.Time{}, false
	}
	return month, true
}
