package handlers

import (
	"github.com/emilythestrangee/commpolls/backend/internal/config"
	"github.com/emilythestrangee/commpolls/backend/internal/service"
)

// Handler combines all handler types
type Handler struct {
	Auth    *AuthHandler
	User    *UserHandler
	Poll    *PollHandler
	Vote    *VoteHandler
	Result  *ResultHandler
	Request *RequestHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(svc *service.Services, cfg config.Config) *Handler {
	return &Handler{
		Auth:    NewAuthHandler(svc.Users, []byte(cfg.JWTSecret), cfg.TokenTTL),
		User:    NewUserHandler(svc.Users, svc.Polls, svc.Voting),
		Poll:    NewPollHandler(svc.Polls, svc.Queries, svc.Now),
		Vote:    NewVoteHandler(svc.Voting, svc.Polls, svc.Now),
		Result:  NewResultHandler(svc.Queries, svc.Now),
		Request: NewRequestHandler(svc.Requests),
	}
}
