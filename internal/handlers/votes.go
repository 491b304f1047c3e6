package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/commpolls/backend/internal/middleware"
	"github.com/emilythestrangee/commpolls/backend/internal/models"
	"github.com/emilythestrangee/commpolls/backend/internal/service"
)

type VoteHandler struct {
	voting *service.VotingService
	polls  *service.PollService
	now    func() time.Time
}

func NewVoteHandler(voting *service.VotingService, polls *service.PollService, now func() time.Time) *VoteHandler {
	return &VoteHandler{voting: voting, polls: polls, now: now}
}

// redirectFor sends the client where a voting signal says it belongs.
func redirectFor(c *gin.Context, id int, e *service.Error) {
	target := resultsPath(id)
	if e.Signal == service.SignalNotStarted {
		target = countdownPath(id)
	}
	c.Header("Location", target)
	c.JSON(http.StatusSeeOther, gin.H{
		"error":    e.Message,
		"signal":   e.Signal,
		"redirect": target,
	})
}

// VoteForm returns the poll with its choices, or redirects when voting is not possible
func (h *VoteHandler) VoteForm(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	poll, err := h.polls.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	now := h.now()
	switch {
	case !poll.HasStarted(now):
		redirectFor(c, id, service.ErrPollNotStarted)
		return
	case poll.HasEnded(now):
		redirectFor(c, id, service.ErrPollClosed)
		return
	}

	existing, err := h.voting.VoterVote(ctx, id, middleware.CurrentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	if existing != nil {
		redirectFor(c, id, service.ErrAlreadyVoted)
		return
	}

	c.JSON(http.StatusOK, gin.H{"poll": models.NewPollView(*poll, now)})
}

// CastVote records the caller's choice
func (h *VoteHandler) CastVote(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var input models.VoteRequest
	if err := c.ShouldBind(&input); err != nil {
		// an unparseable choice is the same as no choice
		input.Choice = 0
	}

	_, err := h.voting.CastVote(ctx, id, middleware.CurrentUser(c), input.Choice)
	if err == nil {
		c.Header("Location", resultsPath(id))
		c.JSON(http.StatusCreated, gin.H{
			"message":  "Your vote has been recorded!",
			"redirect": resultsPath(id),
		})
		return
	}

	var domainErr *service.Error
	if !errors.As(err, &domainErr) {
		respondError(c, err)
		return
	}

	switch domainErr.Signal {
	case service.SignalNotStarted, service.SignalPollClosed, service.SignalAlreadyVoted:
		redirectFor(c, id, domainErr)
	case service.SignalInvalidChoice:
		// re-render the form with the error
		poll, gerr := h.polls.Get(ctx, id)
		if gerr != nil {
			respondError(c, gerr)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  domainErr.Message,
			"signal": domainErr.Signal,
			"poll":   models.NewPollView(*poll, h.now()),
		})
	default:
		respondError(c, err)
	}
}

// Countdown waits for a poll to open and hands over to the vote form once it has
func (h *VoteHandler) Countdown(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		return
	}

	cd, err := h.voting.Countdown(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	if cd.HasStarted {
		c.Header("Location", votePath(id))
		c.JSON(http.StatusSeeOther, gin.H{"redirect": votePath(id)})
		return
	}
	c.JSON(http.StatusOK, cd)
}
