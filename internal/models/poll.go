package models

import "time"

// PollStatus is the time-window state of a poll relative to a clock reading.
type PollStatus string

const (
	PollNotStarted PollStatus = "not_started"
	PollOngoing    PollStatus = "ongoing"
	PollEnded      PollStatus = "ended"
)

type Poll struct {
	ID          int       `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:200;not null" json:"name"`
	Description string    `json:"description"`
	CreatedByID int       `gorm:"not null;index" json:"created_by_id"`
	CreatedBy   *User     `gorm:"foreignKey:CreatedByID;constraint:OnDelete:CASCADE" json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	StartDate   time.Time `gorm:"not null;index" json:"start_date"`
	EndDate     time.Time `gorm:"not null;index" json:"end_date"`
	IsSuspended bool      `gorm:"not null;default:false" json:"is_suspended"`

	Choices []Choice `gorm:"constraint:OnDelete:CASCADE" json:"choices,omitempty"`
}

// HasStarted reports now >= start_date.
func (p Poll) HasStarted(now time.Time) bool {
	return !now.Before(p.StartDate)
}

// HasEnded reports now > end_date.
func (p Poll) HasEnded(now time.Time) bool {
	return now.After(p.EndDate)
}

// IsActive reports whether the poll accepts votes at now.
func (p Poll) IsActive(now time.Time) bool {
	return p.HasStarted(now) && !p.HasEnded(now)
}

func (p Poll) Status(now time.Time) PollStatus {
	switch {
	case !p.HasStarted(now):
		return PollNotStarted
	case p.HasEnded(now):
		return PollEnded
	default:
		return PollOngoing
	}
}

// ParsePollStatus accepts the filter values used by the poll list.
func ParsePollStatus(s string) (PollStatus, bool) {
	switch PollStatus(s) {
	case PollNotStarted, PollOngoing, PollEnded:
		return PollStatus(s), true
	}
	return "", false
}

type ChoiceInput struct {
	Name    string `json:"name" form:"name"`
	Details string `json:"details" form:"details"`
}

type CreatePollRequest struct {
	Name        string        `json:"name" binding:"required,max=200"`
	Description string        `json:"description"`
	StartDate   time.Time     `json:"start_date" binding:"required"`
	EndDate     time.Time     `json:"end_date" binding:"required"`
	Choices     []ChoiceInput `json:"choices"`
}

// PollView is a poll rendered for a particular clock reading.
type PollView struct {
	Poll
	Status     PollStatus `json:"status"`
	HasStarted bool       `json:"has_started"`
	HasEnded   bool       `json:"has_ended"`
	IsActive   bool       `json:"is_active"`
}

func NewPollView(p Poll, now time.Time) PollView {
	return PollView{
		Poll:       p,
		Status:     p.Status(now),
		HasStarted: p.HasStarted(now),
		HasEnded:   p.HasEnded(now),
		IsActive:   p.IsActive(now),
	}
}
