package models

import (
	"context"
	"time"

	"github.com/fueltrack360/dispatch_backend/config"
	"github.com/fueltrack360/dispatch_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type S2LPhoto struct {
	ID             string       `gorm:"primaryKey;size:36" json:"id"`
	OrganizationId string       `gorm:"index;size:36;not null" json:"organization_id"`
	ChecklistId    string       `gorm:"index;size:36;not null" json:"checklist_id"`
	Type           S2LPhotoType `gorm:"size:30;not null" json:"type"`
	URL            string       `gorm:"size:1024;not null" json:"url"`
	Caption        string       `gorm:"size:255" json:"caption"`
	CreatedAt      time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

func (p *S2LPhoto) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

type AddS2LPhotoInput struct {
	Type    S2LPhotoType `json:"type" binding:"required"`
	URL     string       `json:"url" binding:"required"`
	Caption string       `json:"caption"`
}

// AddS2LPhoto attaches evidence to a checklist. Photos can only be added
// while the checklist is still a DRAFT.
func AddS2LPhoto(ctx context.Context, checklistId string, input AddS2LPhotoInput) (*S2LPhoto, error) {
	if _, err := ParseS2LPhotoType(string(input.Type)); err != nil {
		return nil, utils.NewValidationError("invalid photo type %s", input.Type)
	}

	checklist, err := fetchS2L(ctx, checklistId)
	if err != nil {
		return nil, err
	}
	if checklist.Status != S2LStatusDraft {
		return nil, utils.NewValidationError("checklist %s is %s, photos can only be added to a DRAFT", checklistId, checklist.Status)
	}

	photo := &S2LPhoto{
		OrganizationId: checklist.OrganizationId,
		ChecklistId:    checklist.ID,
		Type:           input.Type,
		URL:            input.URL,
		Caption:        input.Caption,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(photo).Error; err != nil {
		return nil, err
	}
	return photo, nil
}

func CountS2LPhotos(ctx context.Context, checklistId string) (int, error) {
	db := config.GetDB()
	var count int64
	err := db.WithContext(ctx).Model(&S2LPhoto{}).
		Where("checklist_id = ?", checklistId).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}
