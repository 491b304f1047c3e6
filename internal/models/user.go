package models

import "time"

// Role is the capability level of an account.
type Role string

const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
)

type User struct {
	ID       int    `gorm:"primaryKey" json:"id"`
	Username string `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;size:254;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`
	Role     Role   `gorm:"size:16;not null;default:user" json:"role"`

	Profile *Profile `gorm:"constraint:OnDelete:CASCADE" json:"profile,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsManager reports whether the user may create and moderate polls.
func (u User) IsManager() bool {
	return u.Role == RoleManager
}

// Profile holds per-user presentation data. Every user has exactly one.
type Profile struct {
	ID     int    `gorm:"primaryKey" json:"id"`
	UserID int    `gorm:"uniqueIndex;not null" json:"user_id"`
	Avatar string `gorm:"size:255" json:"avatar"` // asset reference, storage lives elsewhere

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RegisterRequest struct {
	Username string `json:"username" form:"username" binding:"required,max=150"`
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required,min=6"`
	Avatar   string `json:"avatar" form:"avatar"`
}

type LoginRequest struct {
	Login    string `json:"login" form:"login" binding:"required"` // username or email
	Password string `json:"password" form:"password" binding:"required"`
}

type AccountUpdateRequest struct {
	Username string  `json:"username" form:"username" binding:"omitempty,max=150"`
	Email    string  `json:"email" form:"email" binding:"omitempty,email"`
	Avatar   *string `json:"avatar" form:"avatar"`
}

type AuthResponse struct {
	Token   string `json:"token"`
	User    User   `json:"user"`
	Message string `json:"message"`
}
