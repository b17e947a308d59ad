// backend-go/internal/api/handlers/forecast_handler.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
	"github.com/andresuchdata/demandcast/backend-go/internal/scheduler"
	"github.com/andresuchdata/demandcast/backend-go/internal/service"
	"github.com/gin-gonic/gin"
)

type ForecastHandler struct {
	service *service.ForecastService
}

func NewForecastHandler(service *service.ForecastService) *ForecastHandler {
	return &ForecastHandler{service: service}
}

type createRunRequest struct {
	ItemIDs        []string `json:"item_ids"`
	Category       string   `json:"category"`
	RevenueTier    string   `json:"revenue_tier"`
	LocationID     string   `json:"location_id"`
	GrowthOverride *float64 `json:"growth_override"`
}

// CreateRun queues a forecast generation run. Responds 202 because the work
// happens on the background worker.
func (h *ForecastHandler) CreateRun(c *gin.Context) {
	var req createRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	if req.GrowthOverride != nil && (*req.GrowthOverride < -0.5 || *req.GrowthOverride > 0.5) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "growth_override must be between -0.5 and 0.5"})
		return
	}

	filter := domain.ForecastFilter{
		ItemIDs:     req.ItemIDs,
		Category:    strings.TrimSpace(req.Category),
		RevenueTier: strings.ToUpper(strings.TrimSpace(req.RevenueTier)),
		LocationID:  strings.TrimSpace(req.LocationID),
	}

	runID, position, started, err := h.service.RequestRun(c.Request.Context(), filter, req.GrowthOverride)
	if err != nil {
		if errors.Is(err, scheduler.ErrQueueFull) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "forecast queue is full, retry later"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue forecast run"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"run_id":         runID,
		"queue_position": position,
		"started":        started,
	})
}

func (h *ForecastHandler) GetRun(c *gin.Context) {
	runID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	status, err := h.service.GetRunStatus(c.Request.Context(), runID)
	if err != nil {
		if errors.Is(err, scheduler.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "forecast run not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get forecast run"})
		return
	}

	c.JSON(http.StatusOK, status)
}

func (h *ForecastHandler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	runs, err := h.service.ListRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list forecast runs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (h *ForecastHandler) CancelRun(c *gin.Context) {
	runID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	if err := h.service.CancelRun(c.Request.Context(), runID); err != nil {
		switch {
		case errors.Is(err, scheduler.ErrRunNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "forecast run not found"})
		case errors.Is(err, scheduler.ErrRunTerminal):
			c.JSON(http.StatusConflict, gin.H{"error": "forecast run already finished"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel forecast run"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"run_id": runID, "cancelling": true})
}

// GetDetails serves per-item forecasts for one run. The run comes from the
// path when mounted under /runs/:id/details, otherwise from the run_id query;
// zero or omitted resolves to the latest completed run.
func (h *ForecastHandler) GetDetails(c *gin.Context) {
	rawID := c.Param("id")
	if rawID == "" {
		rawID = c.DefaultQuery("run_id", "0")
	}
	runID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	var itemIDs []string
	if raw := strings.TrimSpace(c.Query("item_ids")); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				itemIDs = append(itemIDs, id)
			}
		}
	}

	details, err := h.service.GetRunDetails(c.Request.Context(), runID, itemIDs)
	if err != nil {
		if errors.Is(err, scheduler.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no completed forecast run"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get forecast details"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"details": details})
}
