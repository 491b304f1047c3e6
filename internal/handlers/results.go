package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/commpolls/backend/internal/middleware"
	"github.com/emilythestrangee/commpolls/backend/internal/service"
)

type ResultHandler struct {
	queries *service.QueryService
	now     func() time.Time
}

func NewResultHandler(queries *service.QueryService, now func() time.Time) *ResultHandler {
	return &ResultHandler{queries: queries, now: now}
}

// Results returns the tally; a logged-in caller also gets their own vote
func (h *ResultHandler) Results(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		return
	}

	results, err := h.queries.Results(c.Request.Context(), id, middleware.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// ResultsAPI is the polling endpoint for live results: choice id -> votes
func (h *ResultHandler) ResultsAPI(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		return
	}

	counts, err := h.queries.ResultCounts(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	// JSON object keys are strings
	body := make(map[string]int, len(counts))
	for choiceID, n := range counts {
		body[strconv.Itoa(choiceID)] = n
	}
	c.JSON(http.StatusOK, body)
}

// ServerTime lets countdown clients correct for clock skew
func (h *ResultHandler) ServerTime(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"server_time": h.now().Format(time.RFC3339Nano)})
}
