package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PhilippVn/ZHS-Scraper/internal/model"
	"github.com/PhilippVn/ZHS-Scraper/internal/store"
)

// StatusProvider is the orchestrator's read surface. The API never touches
// the poll loop's internals.
type StatusProvider interface {
	Courses() []model.Course
	LastChecked() time.Time
	LastCycleAt() time.Time
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	status  StatusProvider
	history store.HistoryStore // nil when the archive is disabled
}

// NewHandler creates a new API handler.
func NewHandler(status StatusProvider, history store.HistoryStore) *Handler {
	return &Handler{status: status, history: history}
}

// coursesResponse wraps the current snapshot for GET /api/courses.
type coursesResponse struct {
	LastChecked time.Time      `json:"lastChecked"`
	Count       int            `json:"count"`
	Courses     []model.Course `json:"courses"`
}

// GetCourses handles the GET /api/courses request. It serves the last
// in-memory snapshot; an empty list before the first completed cycle is a
// valid answer.
func (h *Handler) GetCourses(c *gin.Context) {
	courses := h.status.Courses()
	if courses == nil {
		courses = []model.Course{}
	}
	c.JSON(http.StatusOK, coursesResponse{
		LastChecked: h.status.LastChecked(),
		Count:       len(courses),
		Courses:     courses,
	})
}

// GetChanges handles the GET /api/changes request, serving the newest
// archived change events. Without a configured database the archive is off
// and the endpoint reports 404.
func (h *Handler) GetChanges(c *gin.Context) {
	if h.history == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Change history is not enabled"})
		return
	}

	limit := 50
	if l := c.Query("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}

	records, err := h.history.Recent(c.Request.Context(), limit)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to query change history"})
		return
	}
	if records == nil {
		records = []model.ChangeRecord{}
	}
	c.JSON(http.StatusOK, records)
}

// GetHealth handles the GET /healthz request. lastCycleAt reflects every
// completed cycle, changed or not, so it is the liveness signal.
func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"courses":     len(h.status.Courses()),
		"lastChecked": h.status.LastChecked(),
		"lastCycleAt": h.status.LastCycleAt(),
	})
}
