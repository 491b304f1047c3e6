package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/emilythestrangee/commpolls/backend/internal/models"
)

// MinChoices is the smallest number of named choices a poll may be created with.
const MinChoices = 2

type PollService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewPollService(db *gorm.DB, now func() time.Time) *PollService {
	return &PollService{db: db, now: now}
}

// Create persists a poll and its choices in one transaction. Blank choice rows are
// dropped before counting.
func (s *PollService) Create(ctx context.Context, creator *models.User, in models.CreatePollRequest) (*models.Poll, error) {
	if !CanCreatePolls(creator) {
		return nil, permissionError("Only managers can create polls")
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, validationError("Poll name is required")
	}
	if !in.StartDate.Before(in.EndDate) {
		return nil, validationError("Start date must be before end date")
	}

	var choices []models.Choice
	for _, c := range in.Choices {
		cname := strings.TrimSpace(c.Name)
		if cname == "" {
			continue
		}
		choices = append(choices, models.Choice{Name: cname, Details: strings.TrimSpace(c.Details)})
	}
	if len(choices) < MinChoices {
		return nil, validationError("A poll needs at least %d named choices", MinChoices)
	}

	poll := models.Poll{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		CreatedByID: creator.ID,
		StartDate:   in.StartDate.UTC(),
		EndDate:     in.EndDate.UTC(),
		Choices:     choices,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Choices").Create(&poll).Error; err != nil {
			return err
		}
		for i := range poll.Choices {
			poll.Choices[i].PollID = poll.ID
		}
		return tx.Create(&poll.Choices).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create poll: %w", err)
	}

	return &poll, nil
}

// Get loads a poll with its choices in id order.
func (s *PollService) Get(ctx context.Context, id int) (*models.Poll, error) {
	var poll models.Poll
	err := s.db.WithContext(ctx).
		Preload("CreatedBy").
		Preload("Choices", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		First(&poll, id).Error
	if err != nil {
		return nil, notFoundOr(err, "poll")
	}
	return &poll, nil
}

// GetOwned loads a poll only if requester created it.
func (s *PollService) GetOwned(ctx context.Context, id int, requester *models.User) (*models.Poll, error) {
	poll, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if requester == nil || poll.CreatedByID != requester.ID {
		return nil, permissionError("Only the poll's creator can manage it")
	}
	return poll, nil
}

// Close ends the poll now. A poll that had not started yet gets its start moved to now
// as well so start <= end keeps holding.
func (s *PollService) Close(ctx context.Context, id int, requester *models.User) (*models.Poll, error) {
	poll, err := s.GetOwned(ctx, id, requester)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if poll.HasEnded(now) {
		return nil, conflictError("This poll has already ended")
	}

	updates := map[string]interface{}{"end_date": now}
	if !poll.HasStarted(now) {
		updates["start_date"] = now
	}
	if err := s.db.WithContext(ctx).Model(&models.Poll{ID: poll.ID}).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to close poll: %w", err)
	}

	return s.Get(ctx, id)
}

// Delete removes the poll with its votes and choices.
func (s *PollService) Delete(ctx context.Context, id int, requester *models.User) error {
	poll, err := s.GetOwned(ctx, id, requester)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("poll_id = ?", poll.ID).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("poll_id = ?", poll.ID).Delete(&models.Choice{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Poll{}, poll.ID).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete poll: %w", err)
	}
	return nil
}

// ToggleSuspend hides or unhides a poll from non-managers.
func (s *PollService) ToggleSuspend(ctx context.Context, id int, actor *models.User) (*models.Poll, error) {
	if !CanModerate(actor) {
		return nil, permissionError("Only managers can suspend polls")
	}

	poll, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&models.Poll{ID: poll.ID}).Update("is_suspended", !poll.IsSuspended).Error; err != nil {
		return nil, fmt.Errorf("failed to toggle suspension: %w", err)
	}
	poll.IsSuspended = !poll.IsSuspended
	return poll, nil
}

// ByCreator lists the polls user created, newest first.
func (s *PollService) ByCreator(ctx context.Context, user *models.User) ([]models.Poll, error) {
	var polls []models.Poll
	err := s.db.WithContext(ctx).
		Preload("Choices", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Where("created_by_id = ?", user.ID).
		Order("created_at desc, id desc").
		Find(&polls).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch polls: %w", err)
	}
	return polls, nil
}
