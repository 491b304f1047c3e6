package models

type Choice struct {
	ID         int    `gorm:"primaryKey" json:"id"`
	PollID     int    `gorm:"not null;index" json:"poll_id"`
	Name       string `gorm:"size:200;not null" json:"name"`
	Details    string `json:"details"`
	VotesCount int    `gorm:"not null;default:0" json:"votes_count"` // kept equal to the vote rows for this choice
}
