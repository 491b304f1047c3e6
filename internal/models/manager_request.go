package models

import "time"

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// ManagerRequest is a user's ask for promotion. At most one row per user.
type ManagerRequest struct {
	ID          int           `gorm:"primaryKey" json:"id"`
	UserID      int           `gorm:"uniqueIndex;not null" json:"user_id"`
	User        *User         `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Status      RequestStatus `gorm:"size:16;not null;default:pending;index" json:"status"`
	RequestedAt time.Time     `gorm:"not null" json:"requested_at"`
	DecidedAt   *time.Time    `json:"decided_at,omitempty"`
	DecidedByID *int          `json:"decided_by_id,omitempty"`
}

type DecisionRequest struct {
	RequestID int    `json:"request_id" form:"request_id" binding:"required"`
	Action    string `json:"action" form:"action" binding:"required,oneof=approve reject"`
}
