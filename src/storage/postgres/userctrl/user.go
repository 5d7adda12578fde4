package userctrl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// User is the relational row behind account settings. The bot
// configuration fields (API key, prompt, model) are read at request
// time and folded into an explicit per-call config; nothing here is
// cached in process.
type User struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	FullName   string    `gorm:"column:full_name" json:"fullName"`
	UserAPI    string    `gorm:"column:user_api" json:"userApi"`
	UserPrompt string    `gorm:"column:user_prompt" json:"userPrompt"`
	UserModel  string    `gorm:"column:user_model" json:"userModel"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Settings is the mutable subset of a user row. Nil fields are left
// unchanged on update.
type Settings struct {
	FullName   *string `json:"fullName,omitempty"`
	UserAPI    *string `json:"userApi,omitempty"`
	UserPrompt *string `json:"userPrompt,omitempty"`
	UserModel  *string `json:"userModel,omitempty"`
}

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) (*UserService, error) {
	if err := db.AutoMigrate(&User{}); err != nil {
		return nil, fmt.Errorf("failed to migrate users table: %v", err)
	}
	return &UserService{db: db}, nil
}

// GetByID returns the user row, or nil when no such user exists.
func (s *UserService) GetByID(ctx context.Context, id string) (*User, error) {
	var user User
	result := s.db.WithContext(ctx).First(&user, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %v", result.Error)
	}
	return &user, nil
}

// UpdateSettings applies the non-nil fields and returns the updated
// row. Updating a missing user creates the row, since accounts are
// owned by the external auth collaborator.
func (s *UserService) UpdateSettings(ctx context.Context, id string, settings Settings) (*User, error) {
	updates := map[string]interface{}{}
	if settings.FullName != nil {
		updates["full_name"] = *settings.FullName
	}
	if settings.UserAPI != nil {
		updates["user_api"] = *settings.UserAPI
	}
	if settings.UserPrompt != nil {
		updates["user_prompt"] = *settings.UserPrompt
	}
	if settings.UserModel != nil {
		updates["user_model"] = *settings.UserModel
	}
	if len(updates) == 0 {
		return s.GetByID(ctx, id)
	}

	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		user := &User{ID: id}
		applySettings(user, settings)
		if result := s.db.WithContext(ctx).Create(user); result.Error != nil {
			return nil, fmt.Errorf("failed to create user: %v", result.Error)
		}
		return user, nil
	}

	result := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update user settings: %v", result.Error)
	}

	return s.GetByID(ctx, id)
}

func applySettings(user *User, settings Settings) {
	if settings.FullName != nil {
		user.FullName = *settings.FullName
	}
	if settings.UserAPI != nil {
		user.UserAPI = *settings.UserAPI
	}
	if settings.UserPrompt != nil {
		user.UserPrompt = *settings.UserPrompt
	}
	if settings.UserModel != nil {
		user.UserModel = *settings.UserModel
	}
}
