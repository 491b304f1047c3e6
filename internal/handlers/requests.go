package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/commpolls/backend/internal/middleware"
	"github.com/emilythestrangee/commpolls/backend/internal/models"
	"github.com/emilythestrangee/commpolls/backend/internal/service"
)

type RequestHandler struct {
	requests *service.ManagerRequestService
}

func NewRequestHandler(requests *service.ManagerRequestService) *RequestHandler {
	return &RequestHandler{requests: requests}
}

// RequestStatus shows the caller's role and any request they filed
func (h *RequestHandler) RequestStatus(c *gin.Context) {
	user := middleware.CurrentUser(c)

	req, err := h.requests.ForUser(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"is_manager": user.IsManager(),
		"request":    req,
	})
}

func (h *RequestHandler) SubmitRequest(c *gin.Context) {
	req, err := h.requests.Submit(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Your request has been sent to the managers.",
		"request": req,
	})
}

// ListPending is the moderation queue
func (h *RequestHandler) ListPending(c *gin.Context) {
	reqs, err := h.requests.ListPending(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}

	if reqs == nil {
		reqs = []models.ManagerRequest{}
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs})
}

// Decide approves or rejects one pending request
func (h *RequestHandler) Decide(c *gin.Context) {
	var input models.DecisionRequest
	if err := c.ShouldBind(&input); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	actor := middleware.CurrentUser(c)

	var (
		req *models.ManagerRequest
		err error
	)
	if input.Action == "approve" {
		req, err = h.requests.Approve(ctx, input.RequestID, actor)
	} else {
		req, err = h.requests.Reject(ctx, input.RequestID, actor)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"request": req})
}
