package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fueltrack360/dispatch_backend/config"
	"github.com/fueltrack360/dispatch_backend/utils"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// VarianceThresholdPercent is the loaded-vs-delivered tolerance. Anything
// above it flags the manifest instead of completing it.
var VarianceThresholdPercent = decimal.NewFromFloat(2.0)

const manifestNumberPrefix = "FT360"

// Manifest is one fuel delivery from terminal to station, carrying custody
// of a loaded volume until discharge.
type Manifest struct {
	ID                    string           `gorm:"primaryKey;size:36" json:"id"`
	OrganizationId        string           `gorm:"uniqueIndex:idx_manifest_org_number,priority:1;size:36;not null" json:"organization_id"`
	ManifestNumber        string           `gorm:"uniqueIndex:idx_manifest_org_number,priority:2;size:30;not null" json:"manifest_number"`
	TruckId               string           `gorm:"index;size:36;not null" json:"truck_id"`
	DriverId              string           `gorm:"index;size:36;not null" json:"driver_id"`
	S2LChecklistId        string           `gorm:"size:36;not null" json:"s2l_checklist_id"`
	OriginTerminalId      string           `gorm:"size:36;not null" json:"origin_terminal_id"`
	DestinationStationId  string           `gorm:"size:36;not null" json:"destination_station_id"`
	ProductType           ProductType      `gorm:"size:20;not null" json:"product_type"`
	LoadedVolumeLiters    decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"loaded_volume_liters"`
	DeliveredVolumeLiters *decimal.Decimal `gorm:"type:decimal(12,2)" json:"delivered_volume_liters"`
	VariancePercent       *decimal.Decimal `gorm:"type:decimal(6,3)" json:"variance_percent"`
	Status                ManifestStatus   `gorm:"index;size:20;not null;default:CREATED" json:"status"`
	FlagReason            *string          `gorm:"size:255" json:"flag_reason"`
	LoadedAt              *time.Time       `json:"loaded_at"`
	DepartedAt            *time.Time       `json:"departed_at"`
	ArrivedAt             *time.Time       `json:"arrived_at"`
	DischargedAt          *time.Time       `json:"discharged_at"`
	CompletedAt           *time.Time       `json:"completed_at"`
	SyncId                *string          `gorm:"uniqueIndex;size:64" json:"sync_id"`
	CreatedAt             time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (m *Manifest) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// ManifestNumberSeries is a per-organization, per-day counter row backing
// manifest number allocation.
type ManifestNumberSeries struct {
	SeriesKey string `gorm:"primaryKey;size:64"`
	LastSeq   int64  `gorm:"not null"`
}

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// nextManifestNumber allocates FT360-YYYYMMDD-NNNN atomically. The counter
// row upsert routes the incremented value through LAST_INSERT_ID so
// concurrent allocators never read the same sequence.
func nextManifestNumber(ctx context.Context, tx *gorm.DB, organizationId string, now time.Time) (string, error) {
	datePart := now.Format("20060102")
	seriesKey := fmt.Sprintf("%s:%s", organizationId, datePart)

	err := tx.WithContext(ctx).Exec(
		"INSERT INTO manifest_number_series (series_key, last_seq) VALUES (?, LAST_INSERT_ID(1)) "+
			"ON DUPLICATE KEY UPDATE last_seq = LAST_INSERT_ID(last_seq + 1)",
		seriesKey,
	).Error
	if err != nil {
		return "", err
	}

	var seq int64
	if err := tx.WithContext(ctx).Raw("SELECT LAST_INSERT_ID()").Scan(&seq).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%04d", manifestNumberPrefix, datePart, seq), nil
}

type CreateManifestInput struct {
	S2LChecklistId       string          `json:"s2l_id" binding:"required"`
	TruckId              string          `json:"truck_id" binding:"required"`
	OriginTerminalId     string          `json:"origin_terminal_id" binding:"required"`
	DestinationStationId string          `json:"destination_station_id" binding:"required"`
	ProductType          ProductType     `json:"product_type" binding:"required"`
	LoadedVolumeLiters   decimal.Decimal `json:"loaded_volume_liters" binding:"required"`
	SyncId               *string         `json:"sync_id"`
}

// CreateManifest opens a delivery against an APPROVED safe-to-load
// checklist. A repeated sync id returns the existing manifest.
func CreateManifest(ctx context.Context, input CreateManifestInput) (*Manifest, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, utils.NewValidationError("organization id is required")
	}
	driverId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || driverId == "" {
		return nil, utils.NewValidationError("driver id is required")
	}
	if _, err := ParseProductType(string(input.ProductType)); err != nil {
		return nil, utils.NewValidationError("invalid product type %s", input.ProductType)
	}
	if !input.LoadedVolumeLiters.IsPositive() {
		return nil, utils.NewValidationError("loaded volume must be positive")
	}

	db := config.GetDB()

	if input.SyncId != nil {
		var existing Manifest
		err := db.WithContext(ctx).
			Where("sync_id = ? AND organization_id = ?", *input.SyncId, organizationId).
			First(&existing).Error
		if err == nil {
			return &existing, nil
		}
	}

	truck, err := utils.FetchSingleModel[Truck](ctx, input.TruckId)
	if err != nil {
		return nil, utils.NewNotFoundError("truck %s not found", input.TruckId)
	}
	if input.LoadedVolumeLiters.GreaterThan(truck.CapacityLiters) {
		return nil, utils.NewValidationError("loaded volume %s exceeds truck capacity %s",
			input.LoadedVolumeLiters, truck.CapacityLiters)
	}
	if _, err := GetStation(ctx, input.OriginTerminalId); err != nil {
		return nil, err
	}
	if _, err := GetStation(ctx, input.DestinationStationId); err != nil {
		return nil, err
	}

	checklist, err := utils.FetchSingleModel[S2LChecklist](ctx, input.S2LChecklistId)
	if err != nil {
		return nil, utils.NewNotFoundError("checklist %s not found", input.S2LChecklistId)
	}
	if checklist.Status != S2LStatusApproved {
		return nil, utils.NewValidationError("cannot create manifest: checklist %s is %s, not APPROVED",
			input.S2LChecklistId, checklist.Status)
	}

	// one delivery per approval
	var bound int64
	err = db.WithContext(ctx).Model(&Manifest{}).
		Where("s2l_checklist_id = ? AND organization_id = ?", checklist.ID, organizationId).
		Count(&bound).Error
	if err != nil {
		return nil, err
	}
	if bound > 0 {
		return nil, utils.NewValidationError("checklist %s already has a manifest", checklist.ID)
	}

	now := time.Now().UTC()
	var manifest *Manifest
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := nextManifestNumber(ctx, tx, organizationId, now)
		if err != nil {
			return err
		}

		manifest = &Manifest{
			OrganizationId:       organizationId,
			ManifestNumber:       number,
			TruckId:              input.TruckId,
			DriverId:             driverId,
			S2LChecklistId:       checklist.ID,
			OriginTerminalId:     input.OriginTerminalId,
			DestinationStationId: input.DestinationStationId,
			ProductType:          input.ProductType,
			LoadedVolumeLiters:   input.LoadedVolumeLiters,
			Status:               ManifestStatusCreated,
			SyncId:               input.SyncId,
		}
		if err := tx.Create(manifest).Error; err != nil {
			return err
		}
		return recordAuditEventTx(ctx, tx, AuditEventInput{
			EventType:  EventManifestCreated,
			EntityType: "manifest",
			EntityId:   manifest.ID,
			Payload: map[string]interface{}{
				"manifest_number": manifest.ManifestNumber,
				"s2l_id":          manifest.S2LChecklistId,
				"truck_id":        manifest.TruckId,
				"product_type":    manifest.ProductType,
				"loaded_volume":   manifest.LoadedVolumeLiters,
			},
		})
	})
	if err != nil {
		if isDuplicateKeyErr(err) && input.SyncId != nil {
			var existing Manifest
			fetchErr := db.WithContext(ctx).
				Where("sync_id = ? AND organization_id = ?", *input.SyncId, organizationId).
				First(&existing).Error
			if fetchErr == nil {
				return &existing, nil
			}
		}
		return nil, err
	}
	return manifest, nil
}

// ComputeVariancePercent is abs(loaded - delivered) / loaded * 100, rounded
// to two decimals. Loaded must be nonzero.
func ComputeVariancePercent(loaded, delivered decimal.Decimal) decimal.Decimal {
	if loaded.IsZero() {
		return decimal.Zero
	}
	return loaded.Sub(delivered).Abs().
		Div(loaded).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}

type UpdateManifestStatusInput struct {
	Status                ManifestStatus   `json:"status" binding:"required"`
	LoadedVolumeLiters    *decimal.Decimal `json:"loaded_volume_liters"`
	DeliveredVolumeLiters *decimal.Decimal `json:"delivered_volume_liters"`
}

// UpdateManifestStatus applies the dispatcher-requested stage, stamping the
// matching stage timestamp. The stages are not gated against each other —
// dispatchers report them as they happen, and an offline replay may skip
// straight ahead. Requesting COMPLETED closes custody: when the delivered
// volume is known the variance is computed, and a variance above the
// tolerance lands the manifest in FLAGGED instead.
func UpdateManifestStatus(ctx context.Context, id string, input UpdateManifestStatusInput) (*Manifest, error) {
	manifest, err := fetchManifest(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := ParseManifestStatus(string(input.Status)); err != nil {
		return nil, utils.NewValidationError("invalid manifest status %s", input.Status)
	}
	if input.Status == ManifestStatusFlagged {
		return nil, utils.NewValidationError("FLAGGED cannot be requested directly")
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{"status": input.Status}
	payload := map[string]interface{}{
		"manifest_number": manifest.ManifestNumber,
		"previous_status": manifest.Status,
	}

	// the loaded volume may be corrected up until custody closes
	loaded := manifest.LoadedVolumeLiters
	if input.LoadedVolumeLiters != nil {
		if input.LoadedVolumeLiters.IsNegative() {
			return nil, utils.NewValidationError("loaded volume cannot be negative")
		}
		loaded = *input.LoadedVolumeLiters
		updates["loaded_volume_liters"] = loaded
		payload["loaded_volume"] = loaded
	}

	switch input.Status {
	case ManifestStatusLoading:
		updates["loaded_at"] = now
	case ManifestStatusInTransit:
		updates["departed_at"] = now
	case ManifestStatusArrived:
		updates["arrived_at"] = now
	case ManifestStatusDischarging:
		updates["discharged_at"] = now
	case ManifestStatusCompleted:
		updates["completed_at"] = now

		// variance needs both volumes; a completion without the discharge
		// reading closes custody with the variance left open
		if input.DeliveredVolumeLiters != nil {
			delivered := *input.DeliveredVolumeLiters
			if delivered.IsNegative() {
				return nil, utils.NewValidationError("delivered volume cannot be negative")
			}

			variance := ComputeVariancePercent(loaded, delivered)
			updates["delivered_volume_liters"] = delivered
			updates["variance_percent"] = variance
			payload["loaded_volume"] = loaded
			payload["delivered_volume"] = delivered
			payload["variance_percent"] = variance

			if variance.GreaterThan(VarianceThresholdPercent) {
				reason := fmt.Sprintf("volume variance %s%% exceeds %s%% tolerance",
					variance.StringFixed(2), VarianceThresholdPercent)
				updates["status"] = ManifestStatusFlagged
				updates["flag_reason"] = reason
				payload["flag_reason"] = reason
			}
		}
	}

	finalStatus := updates["status"].(ManifestStatus)
	payload["new_status"] = finalStatus
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// re-check the stage under the transaction so concurrent updates
		// cannot both advance the same manifest
		result := tx.Model(&Manifest{}).
			Where("id = ? AND status = ?", manifest.ID, manifest.Status).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return utils.NewConflictError("manifest %s was updated concurrently", manifest.ManifestNumber)
		}
		return recordAuditEventTx(ctx, tx, AuditEventInput{
			EventType:  ManifestEventType(finalStatus),
			EntityType: "manifest",
			EntityId:   manifest.ID,
			Payload:    payload,
		})
	})
	if err != nil {
		return nil, err
	}
	return fetchManifest(ctx, id)
}

func fetchManifest(ctx context.Context, id string) (*Manifest, error) {
	manifest, err := utils.FetchSingleModel[Manifest](ctx, id)
	if err != nil {
		return nil, utils.NewNotFoundError("manifest %s not found", id)
	}
	return manifest, nil
}

func GetManifest(ctx context.Context, id string) (*Manifest, error) {
	return fetchManifest(ctx, id)
}

type ManifestFilter struct {
	Status    string     `form:"status"`
	TruckId   string     `form:"truck_id"`
	DriverId  string     `form:"driver_id"`
	StationId string     `form:"station_id"`
	From      *time.Time `form:"from"`
	To        *time.Time `form:"to"`
	Limit     int        `form:"limit"`
}

func ListManifests(ctx context.Context, filter ManifestFilter) ([]*Manifest, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, utils.NewValidationError("organization id is required")
	}

	db := config.GetDB()
	query := db.WithContext(ctx).Where("organization_id = ?", organizationId)
	if filter.Status != "" {
		status, err := ParseManifestStatus(filter.Status)
		if err != nil {
			return nil, utils.NewValidationError("%s", err.Error())
		}
		query = query.Where("status = ?", status)
	}
	if filter.TruckId != "" {
		query = query.Where("truck_id = ?", filter.TruckId)
	}
	if filter.DriverId != "" {
		query = query.Where("driver_id = ?", filter.DriverId)
	}
	if filter.StationId != "" {
		query = query.Where("destination_station_id = ?", filter.StationId)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var manifests []*Manifest
	err := query.Order("created_at DESC").Limit(limit).Find(&manifests).Error
	if err != nil {
		return nil, err
	}
	return manifests, nil
}
