package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/emilythestrangee/commpolls/backend/internal/models"
)

// Voted-status filter values; they only apply to an authenticated caller.
const (
	VotedStatusVoted    = "voted"
	VotedStatusNotVoted = "not_voted"
)

// PollFilter is the query string of the poll list. Unknown values are ignored.
type PollFilter struct {
	CreatorName string `form:"creator_name"`
	PollStatus  string `form:"poll_status"`
	VotedStatus string `form:"voted_status"`
}

// Results is the tally of a poll as seen by one caller.
type Results struct {
	Poll       models.PollView `json:"poll"`
	Choices    []models.Choice `json:"choices"`
	TotalVotes int             `json:"total_votes"`
	UserVote   *models.Vote    `json:"user_vote"`
}

type QueryService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewQueryService(db *gorm.DB, now func() time.Time) *QueryService {
	return &QueryService{db: db, now: now}
}

// ListPolls composes the filters into one query. Polls come back newest first and
// suspended polls are only visible to managers.
func (s *QueryService) ListPolls(ctx context.Context, f PollFilter, caller *models.User) ([]models.PollView, error) {
	db := s.db.WithContext(ctx)
	now := s.now()

	q := db.Model(&models.Poll{}).
		Preload("CreatedBy").
		Preload("Choices", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") })

	if name := strings.TrimSpace(f.CreatorName); name != "" {
		creators := db.Model(&models.User{}).
			Select("id").
			Where(`LOWER(username) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(name))+"%")
		q = q.Where("created_by_id IN (?)", creators)
	}

	if status, ok := models.ParsePollStatus(f.PollStatus); ok {
		switch status {
		case models.PollOngoing:
			q = q.Where("start_date <= ? AND end_date >= ?", now, now)
		case models.PollEnded:
			q = q.Where("end_date < ?", now)
		case models.PollNotStarted:
			q = q.Where("start_date > ?", now)
		}
	}

	if caller != nil {
		voted := db.Model(&models.Vote{}).Select("poll_id").Where("voter_id = ?", caller.ID)
		switch f.VotedStatus {
		case VotedStatusVoted:
			q = q.Where("id IN (?)", voted)
		case VotedStatusNotVoted:
			q = q.Where("id NOT IN (?)", voted)
		}
	}

	if !CanModerate(caller) {
		q = q.Where("is_suspended = ?", false)
	}

	var polls []models.Poll
	if err := q.Order("created_at desc, id desc").Find(&polls).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch polls: %w", err)
	}

	views := make([]models.PollView, 0, len(polls))
	for _, p := range polls {
		views = append(views, models.NewPollView(p, now))
	}
	return views, nil
}

// Results orders choices by votes_count descending, ties broken by id ascending.
// caller may be nil.
func (s *QueryService) Results(ctx context.Context, pollID int, caller *models.User) (*Results, error) {
	db := s.db.WithContext(ctx)

	var poll models.Poll
	if err := db.Preload("CreatedBy").First(&poll, pollID).Error; err != nil {
		return nil, notFoundOr(err, "poll")
	}

	var choices []models.Choice
	if err := db.Where("poll_id = ?", poll.ID).Order("votes_count desc, id asc").Find(&choices).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch choices: %w", err)
	}

	res := &Results{
		Poll:    models.NewPollView(poll, s.now()),
		Choices: choices,
	}
	for _, c := range choices {
		res.TotalVotes += c.VotesCount
	}

	if caller != nil {
		var votes []models.Vote
		if err := db.Where("poll_id = ? AND voter_id = ?", poll.ID, caller.ID).Limit(1).Find(&votes).Error; err != nil {
			return nil, fmt.Errorf("failed to load vote: %w", err)
		}
		if len(votes) > 0 {
			res.UserVote = &votes[0]
		}
	}

	return res, nil
}

// ResultCounts maps choice id to its vote count.
func (s *QueryService) ResultCounts(ctx context.Context, pollID int) (map[int]int, error) {
	db := s.db.WithContext(ctx)

	var exists int64
	if err := db.Model(&models.Poll{}).Where("id = ?", pollID).Count(&exists).Error; err != nil {
		return nil, fmt.Errorf("failed to load poll: %w", err)
	}
	if exists == 0 {
		return nil, notFoundError("poll not found")
	}

	var choices []models.Choice
	if err := db.Select("id", "votes_count").Where("poll_id = ?", pollID).Find(&choices).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch choices: %w", err)
	}

	counts := make(map[int]int, len(choices))
	for _, c := range choices {
		counts[c.ID] = c.VotesCount
	}
	return counts, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
