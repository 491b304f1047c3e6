package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/emilythestrangee/commpolls/backend/internal/database"
	"github.com/emilythestrangee/commpolls/backend/internal/models"
	"github.com/emilythestrangee/commpolls/backend/internal/notify"
)

type ManagerRequestService struct {
	db       *gorm.DB
	now      func() time.Time
	notifier notify.Notifier
}

func NewManagerRequestService(db *gorm.DB, now func() time.Time, notifier notify.Notifier) *ManagerRequestService {
	return &ManagerRequestService{db: db, now: now, notifier: notifier}
}

// Submit files a promotion request for user. A rejected request, or an approved one whose
// role has since been taken away, is reset to pending rather than duplicated.
func (s *ManagerRequestService) Submit(ctx context.Context, user *models.User) (*models.ManagerRequest, error) {
	if user == nil {
		return nil, permissionError("You must be logged in to request manager access")
	}
	if user.IsManager() {
		return nil, conflictError("You are already a manager")
	}

	now := s.now()
	var req models.ManagerRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ?", user.ID).First(&req).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			req = models.ManagerRequest{UserID: user.ID, Status: models.RequestPending, RequestedAt: now}
			return tx.Create(&req).Error
		}
		if err != nil {
			return err
		}

		if req.Status == models.RequestPending {
			return conflictError("You already have a pending manager request")
		}

		req.Status = models.RequestPending
		req.RequestedAt = now
		req.DecidedAt = nil
		req.DecidedByID = nil
		return tx.Model(&models.ManagerRequest{ID: req.ID}).Updates(map[string]interface{}{
			"status":        models.RequestPending,
			"requested_at":  now,
			"decided_at":    nil,
			"decided_by_id": nil,
		}).Error
	})
	if database.IsUniqueViolation(err) {
		return nil, conflictError("You already have a pending manager request")
	}
	if err != nil {
		if KindOf(err) != 0 {
			return nil, err
		}
		return nil, fmt.Errorf("failed to submit manager request: %w", err)
	}

	if err := s.notifier.ManagerRequested(ctx, *user, req); err != nil {
		log.WithError(err).WithField("request_id", req.ID).Warn("failed to notify about manager request")
	}

	return &req, nil
}

// ForUser returns the user's request, or nil when none was ever filed.
func (s *ManagerRequestService) ForUser(ctx context.Context, userID int) (*models.ManagerRequest, error) {
	var req models.ManagerRequest
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load manager request: %w", err)
	}
	return &req, nil
}

// ListPending returns the requests awaiting a decision, oldest first.
func (s *ManagerRequestService) ListPending(ctx context.Context, actor *models.User) ([]models.ManagerRequest, error) {
	if !CanModerate(actor) {
		return nil, permissionError("Only managers can review manager requests")
	}

	var reqs []models.ManagerRequest
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("status = ?", models.RequestPending).
		Order("requested_at asc, id asc").
		Find(&reqs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch manager requests: %w", err)
	}
	return reqs, nil
}

// Approve grants the manager role to the request's user.
func (s *ManagerRequestService) Approve(ctx context.Context, requestID int, actor *models.User) (*models.ManagerRequest, error) {
	return s.decide(ctx, requestID, actor, models.RequestApproved)
}

// Reject closes the request without changing the user's role.
func (s *ManagerRequestService) Reject(ctx context.Context, requestID int, actor *models.User) (*models.ManagerRequest, error) {
	return s.decide(ctx, requestID, actor, models.RequestRejected)
}

func (s *ManagerRequestService) decide(ctx context.Context, requestID int, actor *models.User, status models.RequestStatus) (*models.ManagerRequest, error) {
	if !CanModerate(actor) {
		return nil, permissionError("Only managers can review manager requests")
	}

	now := s.now()
	var req models.ManagerRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&req, requestID).Error; err != nil {
			return notFoundOr(err, "manager request")
		}
		if req.Status != models.RequestPending {
			return conflictError("This request has already been %s", req.Status)
		}

		// the status guard makes a concurrent second decision a no-op
		res := tx.Model(&models.ManagerRequest{}).
			Where("id = ? AND status = ?", req.ID, models.RequestPending).
			Updates(map[string]interface{}{
				"status":        status,
				"decided_at":    now,
				"decided_by_id": actor.ID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return conflictError("This request has already been decided")
		}

		if status == models.RequestApproved {
			if err := tx.Model(&models.User{}).
				Where("id = ?", req.UserID).
				Update("role", models.RoleManager).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if KindOf(err) != 0 {
			return nil, err
		}
		return nil, fmt.Errorf("failed to decide manager request: %w", err)
	}

	req.Status = status
	req.DecidedAt = &now
	req.DecidedByID = &actor.ID

	log.WithFields(log.Fields{
		"request_id": req.ID,
		"user_id":    req.UserID,
		"status":     status,
		"actor_id":   actor.ID,
	}).Info("Manager request decided")

	return &req, nil
}
