package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"gorm.io/gorm"

	"github.com/emilythestrangee/commpolls/backend/internal/database"
	"github.com/emilythestrangee/commpolls/backend/internal/models"
)

type VotingService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewVotingService(db *gorm.DB, now func() time.Time) *VotingService {
	return &VotingService{db: db, now: now}
}

// CastVote records voter's choice on a poll. The vote row and the choice counter are
// written in the same transaction; the (poll_id, voter_id) unique index decides between
// concurrent submissions and the loser gets ErrAlreadyVoted.
func (s *VotingService) CastVote(ctx context.Context, pollID int, voter *models.User, choiceID int) (*models.Vote, error) {
	if voter == nil {
		return nil, permissionError("You must be logged in to vote")
	}

	var vote models.Vote
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var poll models.Poll
		if err := tx.First(&poll, pollID).Error; err != nil {
			return notFoundOr(err, "poll")
		}

		now := s.now()
		if !poll.HasStarted(now) {
			return ErrPollNotStarted
		}
		if poll.HasEnded(now) {
			return ErrPollClosed
		}

		var existing int64
		if err := tx.Model(&models.Vote{}).
			Where("poll_id = ? AND voter_id = ?", poll.ID, voter.ID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyVoted
		}

		if choiceID <= 0 {
			return ErrInvalidChoice
		}
		var choice models.Choice
		err := tx.Where("id = ? AND poll_id = ?", choiceID, poll.ID).First(&choice).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidChoice
		}
		if err != nil {
			return err
		}

		vote = models.Vote{
			PollID:   poll.ID,
			ChoiceID: choice.ID,
			VoterID:  voter.ID,
			VotedAt:  now,
		}
		if err := tx.Create(&vote).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Choice{}).
			Where("id = ?", choice.ID).
			UpdateColumn("votes_count", gorm.Expr("votes_count + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("choice %d counter not updated", choice.ID)
		}
		return nil
	})
	if database.IsUniqueViolation(err) {
		return nil, ErrAlreadyVoted
	}
	if err != nil {
		if KindOf(err) != 0 {
			return nil, err
		}
		return nil, fmt.Errorf("failed to record vote: %w", err)
	}

	return &vote, nil
}

// VoterVote returns the voter's vote on a poll, or nil when there is none.
func (s *VotingService) VoterVote(ctx context.Context, pollID, voterID int) (*models.Vote, error) {
	var vote models.Vote
	err := s.db.WithContext(ctx).
		Preload("Choice").
		Where("poll_id = ? AND voter_id = ?", pollID, voterID).
		First(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load vote: %w", err)
	}
	return &vote, nil
}

// VotesByVoter lists a user's votes with their polls and choices, newest first.
func (s *VotingService) VotesByVoter(ctx context.Context, voterID int) ([]models.Vote, error) {
	var votes []models.Vote
	err := s.db.WithContext(ctx).
		Preload("Poll").
		Preload("Poll.Choices", func(db *gorm.DB) *gorm.DB { return db.Order("votes_count desc, id asc") }).
		Preload("Choice").
		Where("voter_id = ?", voterID).
		Order("voted_at desc, id desc").
		Find(&votes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch votes: %w", err)
	}
	return votes, nil
}

// Countdown describes the wait before a poll opens.
type Countdown struct {
	PollID           int       `json:"poll_id"`
	StartDate        time.Time `json:"start_date"`
	ServerNow        time.Time `json:"server_now"`
	SecondsRemaining int64     `json:"seconds_remaining"`
	StartsIn         string    `json:"starts_in"`
	HasStarted       bool      `json:"has_started"`
}

func (s *VotingService) Countdown(ctx context.Context, pollID int) (*Countdown, error) {
	var poll models.Poll
	if err := s.db.WithContext(ctx).First(&poll, pollID).Error; err != nil {
		return nil, notFoundOr(err, "poll")
	}

	now := s.now()
	cd := &Countdown{
		PollID:     poll.ID,
		StartDate:  poll.StartDate,
		ServerNow:  now,
		HasStarted: poll.HasStarted(now),
	}
	if !cd.HasStarted {
		cd.SecondsRemaining = int64(poll.StartDate.Sub(now).Seconds())
		cd.StartsIn = humanize.RelTime(poll.StartDate, now, "ago", "from now")
	}
	return cd, nil
}
