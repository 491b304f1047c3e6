package models

import "time"

// Vote model - one row per (poll, voter), never updated
type Vote struct {
	ID       int       `gorm:"primaryKey" json:"id"`
	PollID   int       `gorm:"not null;uniqueIndex:idx_votes_poll_voter" json:"poll_id"`
	ChoiceID int       `gorm:"not null;index" json:"choice_id"`
	VoterID  int       `gorm:"not null;uniqueIndex:idx_votes_poll_voter" json:"voter_id"`
	VotedAt  time.Time `gorm:"not null" json:"voted_at"`

	Poll   *Poll   `gorm:"constraint:OnDelete:CASCADE" json:"poll,omitempty"`
	Choice *Choice `gorm:"constraint:OnDelete:CASCADE" json:"choice,omitempty"`
	Voter  *User   `gorm:"foreignKey:VoterID;constraint:OnDelete:CASCADE" json:"-"`
}

type VoteRequest struct {
	Choice int `json:"choice" form:"choice"`
}
