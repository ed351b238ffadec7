package models

import (
	"context"
	"time"

	"github.com/fueltrack360/dispatch_backend/config"
	"github.com/fueltrack360/dispatch_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	OrganizationId string    `gorm:"index;size:36;not null" json:"organization_id"`
	Name           string    `gorm:"size:255;not null" json:"name" binding:"required"`
	Email          string    `gorm:"uniqueIndex;size:255;not null" json:"email" binding:"required,email"`
	Phone          string    `gorm:"size:30" json:"phone"`
	Password       string    `gorm:"size:255;not null" json:"-"`
	Role           UserRole  `gorm:"size:20;not null" json:"role"`
	LicenseNo      string    `gorm:"size:50" json:"license_no"`
	IsActive       *bool     `gorm:"not null;default:1" json:"is_active"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

func Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	db := config.GetDB()

	var user User
	err := db.WithContext(ctx).
		Where("email = ? AND is_active = ?", input.Email, true).
		First(&user).Error
	if err != nil {
		return nil, utils.NewPermissionError("invalid credentials")
	}

	if err := utils.ComparePassword(user.Password, input.Password); err != nil {
		return nil, utils.NewPermissionError("invalid credentials")
	}

	token, err := utils.JwtGenerate(user.ID, string(user.Role), user.OrganizationId)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Token: token, User: &user}, nil
}

func GetUser(ctx context.Context, id string) (*User, error) {
	user, err := utils.FetchSingleModel[User](ctx, id)
	if err != nil {
		return nil, utils.NewNotFoundError("user %s not found", id)
	}
	return user, nil
}
