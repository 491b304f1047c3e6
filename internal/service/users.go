package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/emilythestrangee/commpolls/backend/internal/auth"
	"github.com/emilythestrangee/commpolls/backend/internal/database"
	"github.com/emilythestrangee/commpolls/backend/internal/models"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// CanCreatePolls is the capability check for poll creation.
func CanCreatePolls(u *models.User) bool {
	return u != nil && u.IsManager()
}

// CanModerate is the capability check for suspending polls and deciding manager requests.
func CanModerate(u *models.User) bool {
	return u != nil && u.IsManager()
}

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// Register creates the account and its profile together.
func (s *UserService) Register(ctx context.Context, in models.RegisterRequest) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if username == "" || email == "" {
		return nil, validationError("username and email are required")
	}

	db := s.db.WithContext(ctx)

	// Check if username or email already exists
	var existing int64
	if err := db.Model(&models.User{}).Where("username = ? OR email = ?", username, email).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing users: %w", err)
	}
	if existing > 0 {
		return nil, conflictError("Username or email already exists")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username: username,
		Email:    email,
		Password: hash,
		Role:     models.RoleUser,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Profile").Create(&user).Error; err != nil {
			return err
		}
		profile := models.Profile{UserID: user.ID, Avatar: strings.TrimSpace(in.Avatar)}
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}
		user.Profile = &profile
		return nil
	})
	if database.IsUniqueViolation(err) {
		return nil, conflictError("Username or email already exists")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &user, nil
}

// Authenticate accepts either the username or the email as login.
func (s *UserService) Authenticate(ctx context.Context, login, password string) (*models.User, error) {
	login = strings.TrimSpace(login)

	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Profile").
		Where("username = ? OR email = ?", login, strings.ToLower(login)).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !auth.CheckPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func (s *UserService) Get(ctx context.Context, id int) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Profile").First(&user, id).Error; err != nil {
		return nil, notFoundOr(err, "user")
	}
	return &user, nil
}

// UpdateAccount changes username, email and avatar. Empty fields are left alone;
// a non-nil empty avatar clears it.
func (s *UserService) UpdateAccount(ctx context.Context, userID int, in models.AccountUpdateRequest) (*models.User, error) {
	updates := map[string]interface{}{}
	if v := strings.TrimSpace(in.Username); v != "" {
		updates["username"] = v
	}
	if v := strings.ToLower(strings.TrimSpace(in.Email)); v != "" {
		updates["email"] = v
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return notFoundOr(err, "user")
		}

		if len(updates) > 0 {
			if err := tx.Model(&user).Updates(updates).Error; err != nil {
				return err
			}
		}

		if in.Avatar != nil {
			profile := models.Profile{UserID: userID}
			if err := tx.Where(models.Profile{UserID: userID}).FirstOrCreate(&profile).Error; err != nil {
				return err
			}
			if err := tx.Model(&profile).Update("avatar", strings.TrimSpace(*in.Avatar)).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if database.IsUniqueViolation(err) {
		return nil, conflictError("Username or email already exists")
	}
	if err != nil {
		if KindOf(err) != 0 {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	return s.Get(ctx, userID)
}

// Promote grants the manager role directly. Used to bootstrap the first managers.
func (s *UserService) Promote(ctx context.Context, username string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ?", username).
		Update("role", models.RoleManager)
	if res.Error != nil {
		return fmt.Errorf("failed to promote %s: %w", username, res.Error)
	}
	if res.RowsAffected == 0 {
		return notFoundError("user %q not found", username)
	}
	return nil
}
