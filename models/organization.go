package models

import (
	"context"
	"time"

	"github.com/fueltrack360/dispatch_backend/config"
	"github.com/fueltrack360/dispatch_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Organization struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"index;size:255;not null" json:"name" binding:"required"`
	Country   string    `gorm:"size:100" json:"country"`
	IsActive  *bool     `gorm:"not null;default:1" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// Station is a terminal or fuel station. Its coordinates and radius back the
// geofence checks.
type Station struct {
	ID              string      `gorm:"primaryKey;size:36" json:"id"`
	OrganizationId  string      `gorm:"index;size:36;not null" json:"organization_id"`
	Name            string      `gorm:"size:255;not null" json:"name" binding:"required"`
	Code            string      `gorm:"size:20;not null" json:"code" binding:"required"`
	Type            StationType `gorm:"size:20;not null" json:"type" binding:"required"`
	Zone            string      `gorm:"size:10" json:"zone"`
	Address         string      `gorm:"type:text" json:"address"`
	GpsLat          float64     `gorm:"type:decimal(10,7)" json:"gps_lat"`
	GpsLng          float64     `gorm:"type:decimal(10,7)" json:"gps_lng"`
	GeofenceRadiusM float64     `gorm:"not null;default:250" json:"geofence_radius_m"`
	IsActive        *bool       `gorm:"not null;default:1" json:"is_active"`
	CreatedAt       time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *Station) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func GetStation(ctx context.Context, id string) (*Station, error) {
	station, err := utils.FetchSingleModel[Station](ctx, id)
	if err != nil {
		return nil, utils.NewNotFoundError("station %s not found", id)
	}
	return station, nil
}

func ListStations(ctx context.Context) ([]*Station, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, utils.NewValidationError("organization id is required")
	}

	db := config.GetDB()
	var stations []*Station
	err := db.WithContext(ctx).
		Where("organization_id = ? AND is_active = ?", organizationId, true).
		Order("name ASC").
		Find(&stations).Error
	if err != nil {
		return nil, err
	}
	return stations, nil
}
