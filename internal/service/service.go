package service

import (
	"time"

	"gorm.io/gorm"

	"github.com/emilythestrangee/commpolls/backend/internal/notify"
)

// Services bundles the domain services sharing one database handle and clock.
type Services struct {
	Users    *UserService
	Polls    *PollService
	Voting   *VotingService
	Requests *ManagerRequestService
	Queries  *QueryService

	Now func() time.Time
}

func New(db *gorm.DB, notifier notify.Notifier) *Services {
	return NewWithClock(db, notifier, func() time.Time { return time.Now().UTC() })
}

// NewWithClock lets tests pin "now".
func NewWithClock(db *gorm.DB, notifier notify.Notifier, now func() time.Time) *Services {
	return &Services{
		Users:    NewUserService(db),
		Polls:    NewPollService(db, now),
		Voting:   NewVotingService(db, now),
		Requests: NewManagerRequestService(db, now, notifier),
		Queries:  NewQueryService(db, now),
		Now:      now,
	}
}
