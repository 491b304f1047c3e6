package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/commpolls/backend/internal/middleware"
	"github.com/emilythestrangee/commpolls/backend/internal/models"
	"github.com/emilythestrangee/commpolls/backend/internal/service"
)

type UserHandler struct {
	users  *service.UserService
	polls  *service.PollService
	voting *service.VotingService
}

func NewUserHandler(users *service.UserService, polls *service.PollService, voting *service.VotingService) *UserHandler {
	return &UserHandler{users: users, polls: polls, voting: voting}
}

// GetAccount returns the current authenticated user
func (h *UserHandler) GetAccount(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": middleware.CurrentUser(c)})
}

// UpdateAccount changes username, email and avatar
func (h *UserHandler) UpdateAccount(c *gin.Context) {
	var input models.AccountUpdateRequest
	if err := c.ShouldBind(&input); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.users.UpdateAccount(c.Request.Context(), middleware.CurrentUser(c).ID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Your account details have been updated.",
		"user":    user,
	})
}

// MyPolls lists the polls the caller created
func (h *UserHandler) MyPolls(c *gin.Context) {
	polls, err := h.polls.ByCreator(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}

	// If no polls, return empty array not null
	if polls == nil {
		polls = []models.Poll{}
	}
	c.JSON(http.StatusOK, gin.H{"polls": polls})
}

// MyVotes lists the caller's votes with their polls
func (h *UserHandler) MyVotes(c *gin.Context) {
	votes, err := h.voting.VotesByVoter(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}

	if votes == nil {
		votes = []models.Vote{}
	}
	c.JSON(http.StatusOK, gin.H{"votes": votes})
}
