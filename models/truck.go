package models

import (
	"context"
	"time"

	"github.com/fueltrack360/dispatch_backend/config"
	"github.com/fueltrack360/dispatch_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Truck struct {
	ID              string          `gorm:"primaryKey;size:36" json:"id"`
	OrganizationId  string          `gorm:"index;size:36;not null" json:"organization_id"`
	PlateNumber     string          `gorm:"uniqueIndex;size:20;not null" json:"plate_number" binding:"required"`
	Model           string          `gorm:"size:100" json:"model"`
	CapacityLiters  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"capacity_liters"`
	Compartments    int             `gorm:"not null;default:1" json:"compartments"`
	Status          TruckStatus     `gorm:"size:30;not null;default:IDLE" json:"status"`
	CurrentDriverId *string         `gorm:"size:36" json:"current_driver_id"`
	LastLat         *float64        `gorm:"type:decimal(10,7)" json:"last_lat"`
	LastLng         *float64        `gorm:"type:decimal(10,7)" json:"last_lng"`
	LastPositionAt  *time.Time      `json:"last_position_at"`
	IsActive        *bool           `gorm:"not null;default:1" json:"is_active"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t *Truck) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

type GpsLog struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	OrganizationId string    `gorm:"index;size:36;not null" json:"organization_id"`
	TruckId        string    `gorm:"index:idx_gps_truck_time;size:36;not null" json:"truck_id" binding:"required"`
	DriverId       *string   `gorm:"size:36" json:"driver_id"`
	Lat            float64   `gorm:"type:decimal(10,7);not null" json:"lat"`
	Lng            float64   `gorm:"type:decimal(10,7);not null" json:"lng"`
	SpeedKmh       float64   `gorm:"type:decimal(6,2)" json:"speed_kmh"`
	HeadingDeg     float64   `gorm:"type:decimal(5,1)" json:"heading_deg"`
	RecordedAt     time.Time `gorm:"index:idx_gps_truck_time;not null" json:"recorded_at" binding:"required"`
	SyncId         *string   `gorm:"uniqueIndex;size:64" json:"sync_id"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (g *GpsLog) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}

type GpsLogInput struct {
	TruckId    string    `json:"truck_id" binding:"required"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	SpeedKmh   float64   `json:"speed_kmh"`
	HeadingDeg float64   `json:"heading_deg"`
	RecordedAt time.Time `json:"recorded_at" binding:"required"`
	SyncId     *string   `json:"sync_id"`
}

// IngestGpsLog stores a single position ping. A ping that carries a sync id
// already seen is returned as-is instead of being inserted twice.
func IngestGpsLog(ctx context.Context, input GpsLogInput) (*GpsLog, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, utils.NewValidationError("organization id is required")
	}
	if input.Lat < -90 || input.Lat > 90 || input.Lng < -180 || input.Lng > 180 {
		return nil, utils.NewValidationError("coordinates out of range")
	}

	db := config.GetDB()

	if _, err := utils.FetchSingleModel[Truck](ctx, input.TruckId); err != nil {
		return nil, utils.NewNotFoundError("truck %s not found", input.TruckId)
	}

	var driverId *string
	if userId, ok := utils.GetUserIdFromContext(ctx); ok && userId != "" {
		driverId = &userId
	}

	log := &GpsLog{
		OrganizationId: organizationId,
		TruckId:        input.TruckId,
		DriverId:       driverId,
		Lat:            input.Lat,
		Lng:            input.Lng,
		SpeedKmh:       input.SpeedKmh,
		HeadingDeg:     input.HeadingDeg,
		RecordedAt:     input.RecordedAt,
		SyncId:         input.SyncId,
	}

	err := db.WithContext(ctx).Create(log).Error
	if err != nil {
		if isDuplicateKeyErr(err) && input.SyncId != nil {
			var existing GpsLog
			fetchErr := db.WithContext(ctx).
				Where("sync_id = ? AND organization_id = ?", *input.SyncId, organizationId).
				First(&existing).Error
			if fetchErr == nil {
				return &existing, nil
			}
		}
		return nil, err
	}

	// Last-known position follows processing order: whichever sample lands
	// last overwrites, even if its recorded_at is older.
	err = db.WithContext(ctx).Model(&Truck{}).
		Where("id = ?", input.TruckId).
		Updates(map[string]interface{}{
			"last_lat":         input.Lat,
			"last_lng":         input.Lng,
			"last_position_at": input.RecordedAt,
		}).Error
	if err != nil {
		config.LogError(config.GetLogger(), "models", "IngestGpsLog",
			"last position update failed",
			map[string]interface{}{"truck_id": input.TruckId}, err)
	}
	return log, nil
}

type GpsHistoryFilter struct {
	TruckId string     `form:"truck_id" binding:"required"`
	From    *time.Time `form:"from"`
	To      *time.Time `form:"to"`
	Limit   int        `form:"limit"`
}

func GetGpsHistory(ctx context.Context, filter GpsHistoryFilter) ([]*GpsLog, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, utils.NewValidationError("organization id is required")
	}

	db := config.GetDB()
	query := db.WithContext(ctx).
		Where("truck_id = ? AND organization_id = ?", filter.TruckId, organizationId)
	if filter.From != nil {
		query = query.Where("recorded_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("recorded_at <= ?", *filter.To)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 500
	}

	var logs []*GpsLog
	err := query.Order("recorded_at DESC").Limit(limit).Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

type FleetTruckStatus struct {
	Truck        *Truck  `json:"truck"`
	LastPosition *GpsLog `json:"last_position"`
}

// GetFleetStatus returns every active truck with its most recent position.
func GetFleetStatus(ctx context.Context) ([]*FleetTruckStatus, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, utils.NewValidationError("organization id is required")
	}

	db := config.GetDB()
	var trucks []*Truck
	err := db.WithContext(ctx).
		Where("organization_id = ? AND is_active = ?", organizationId, true).
		Order("plate_number ASC").
		Find(&trucks).Error
	if err != nil {
		return nil, err
	}

	result := make([]*FleetTruckStatus, 0, len(trucks))
	for _, truck := range trucks {
		var last GpsLog
		err := db.WithContext(ctx).
			Where("truck_id = ? AND organization_id = ?", truck.ID, organizationId).
			Order("created_at DESC").
			First(&last).Error
		entry := &FleetTruckStatus{Truck: truck}
		if err == nil {
			entry.LastPosition = &last
		} else if err != gorm.ErrRecordNotFound {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, nil
}

type UpdateTruckStatusInput struct {
	Status TruckStatus `json:"status" binding:"required"`
}

func UpdateTruckStatus(ctx context.Context, truckId string, input UpdateTruckStatusInput) (*Truck, error) {
	if _, err := ParseTruckStatus(string(input.Status)); err != nil {
		return nil, utils.NewValidationError("invalid truck status %s", input.Status)
	}

	truck, err := utils.FetchSingleModel[Truck](ctx, truckId)
	if err != nil {
		return nil, utils.NewNotFoundError("truck %s not found", truckId)
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		previous := truck.Status
		if err := tx.Model(truck).Update("status", input.Status).Error; err != nil {
			return err
		}
		return recordAuditEventTx(ctx, tx, AuditEventInput{
			EventType:  EventTruckStatusChanged,
			EntityType: "truck",
			EntityId:   truck.ID,
			Payload: map[string]interface{}{
				"previous_status": previous,
				"new_status":      input.Status,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return truck, nil
}

func GetTruck(ctx context.Context, id string) (*Truck, error) {
	truck, err := utils.FetchSingleModel[Truck](ctx, id)
	if err != nil {
		return nil, utils.NewNotFoundError("truck %s not found", id)
	}
	return truck, nil
}

func ListTrucks(ctx context.Context) ([]*Truck, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, utils.NewValidationError("organization id is required")
	}
	return utils.FetchAllModels[Truck](ctx, organizationId)
}
