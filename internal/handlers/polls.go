package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/emilythestrangee/commpolls/backend/internal/middleware"
	"github.com/emilythestrangee/commpolls/backend/internal/models"
	"github.com/emilythestrangee/commpolls/backend/internal/service"
)

// blank choice rows offered by the create form
const createFormChoiceSlots = 3

type PollHandler struct {
	polls   *service.PollService
	queries *service.QueryService
	now     func() time.Time
}

func NewPollHandler(polls *service.PollService, queries *service.QueryService, now func() time.Time) *PollHandler {
	return &PollHandler{polls: polls, queries: queries, now: now}
}

// ListPolls is the home page: every visible poll, narrowed by the query filters
func (h *PollHandler) ListPolls(c *gin.Context) {
	var filter service.PollFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, err)
		return
	}

	polls, err := h.queries.ListPolls(c.Request.Context(), filter, middleware.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"polls":       polls,
		"filters":     filter,
		"server_time": h.now(),
	})
}

// CreateForm returns the defaults a client should prefill
func (h *PollHandler) CreateForm(c *gin.Context) {
	now := h.now()
	c.JSON(http.StatusOK, gin.H{
		"min_choices": service.MinChoices,
		"defaults": models.CreatePollRequest{
			StartDate: now,
			EndDate:   now.Add(24 * time.Hour),
			Choices:   make([]models.ChoiceInput, createFormChoiceSlots),
		},
	})
}

func (h *PollHandler) CreatePoll(c *gin.Context) {
	var input models.CreatePollRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	poll, err := h.polls.Create(c.Request.Context(), middleware.CurrentUser(c), input)
	if err != nil {
		respondError(c, err)
		return
	}

	log.WithFields(log.Fields{"poll_id": poll.ID, "creator_id": poll.CreatedByID}).Info("🗳️ Poll created")

	c.Header("Location", "/polls/mine/")
	c.JSON(http.StatusCreated, gin.H{
		"message": "Poll created successfully!",
		"poll":    poll,
	})
}

// ManagePoll shows the creator the tally of their poll
func (h *PollHandler) ManagePoll(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		return
	}
	user := middleware.CurrentUser(c)

	if _, err := h.polls.GetOwned(c.Request.Context(), id, user); err != nil {
		respondError(c, err)
		return
	}

	results, err := h.queries.Results(c.Request.Context(), id, user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// ClosePoll ends the poll immediately
func (h *PollHandler) ClosePoll(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		return
	}

	poll, err := h.polls.Close(c.Request.Context(), id, middleware.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Poll has been closed.",
		"poll":    models.NewPollView(*poll, h.now()),
	})
}

func (h *PollHandler) DeletePoll(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		return
	}

	if err := h.polls.Delete(c.Request.Context(), id, middleware.CurrentUser(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Poll deleted successfully."})
}

// SuspendPoll toggles whether non-managers see the poll in the list
func (h *PollHandler) SuspendPoll(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		return
	}

	poll, err := h.polls.ToggleSuspend(c.Request.Context(), id, middleware.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           poll.ID,
		"is_suspended": poll.IsSuspended,
	})
}
