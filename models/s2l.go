package models

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fueltrack360/dispatch_backend/config"
	"github.com/fueltrack360/dispatch_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// a draft not submitted within this window lapses
const s2lValidityHours = 24

type ChecklistItem struct {
	Code   string `json:"code" binding:"required"`
	Label  string `json:"label" binding:"required"`
	Passed bool   `json:"passed"`
	Note   string `json:"note"`
}

// ChecklistItems persists the item list as one JSON column.
type ChecklistItems []ChecklistItem

func (c ChecklistItems) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	return json.Marshal(c)
}

func (c *ChecklistItems) Scan(value interface{}) error {
	if value == nil {
		*c = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ChecklistItems", value)
	}
	return json.Unmarshal(raw, c)
}

// S2LChecklist is a driver's safe-to-load pre-trip inspection. It moves
// DRAFT -> SUBMITTED -> APPROVED/REJECTED; a draft that goes stale before
// submission lapses to EXPIRED.
type S2LChecklist struct {
	ID             string         `gorm:"primaryKey;size:36" json:"id"`
	OrganizationId string         `gorm:"index;size:36;not null" json:"organization_id"`
	TruckId        string         `gorm:"index;size:36;not null" json:"truck_id"`
	DriverId       string         `gorm:"index;size:36;not null" json:"driver_id"`
	StationId      *string        `gorm:"size:36" json:"station_id"`
	Status         S2LStatus      `gorm:"index;size:20;not null;default:DRAFT" json:"status"`
	Items          ChecklistItems `gorm:"type:json" json:"items"`
	AllItemsPass   bool           `gorm:"not null;default:0" json:"all_items_pass"`
	CreatedLat     *float64       `gorm:"type:decimal(10,7)" json:"created_lat"`
	CreatedLng     *float64       `gorm:"type:decimal(10,7)" json:"created_lng"`
	SubmittedLat   *float64       `gorm:"type:decimal(10,7)" json:"submitted_lat"`
	SubmittedLng   *float64       `gorm:"type:decimal(10,7)" json:"submitted_lng"`
	SignatureURL   *string        `gorm:"size:1024" json:"signature_url"`
	RejectReason   *string        `gorm:"type:text" json:"reject_reason"`
	SubmittedAt    *time.Time     `json:"submitted_at"`
	ReviewedAt     *time.Time     `json:"reviewed_at"`
	ReviewedBy     *string        `gorm:"size:36" json:"reviewed_by"`
	SyncId         *string        `gorm:"uniqueIndex;size:64" json:"sync_id"`
	Photos         []S2LPhoto     `gorm:"foreignKey:ChecklistId" json:"photos"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *S2LChecklist) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

type CreateS2LInput struct {
	TruckId   string         `json:"truck_id" binding:"required"`
	StationId *string        `json:"station_id"`
	Items     ChecklistItems `json:"items" binding:"required,dive"`
	Lat       *float64       `json:"lat"`
	Lng       *float64       `json:"lng"`
	SyncId    *string        `json:"sync_id"`
}

// CreateS2L opens a DRAFT checklist for the calling driver. A repeated
// sync id returns the already-created row.
func CreateS2L(ctx context.Context, input CreateS2LInput) (*S2LChecklist, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, utils.NewValidationError("organization id is required")
	}
	driverId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || driverId == "" {
		return nil, utils.NewValidationError("driver id is required")
	}
	if len(input.Items) == 0 {
		return nil, utils.NewValidationError("checklist items are required")
	}

	if _, err := utils.FetchSingleModel[Truck](ctx, input.TruckId); err != nil {
		return nil, utils.NewNotFoundError("truck %s not found", input.TruckId)
	}

	allPass := true
	for _, item := range input.Items {
		if !item.Passed {
			allPass = false
			break
		}
	}

	db := config.GetDB()
	checklist := &S2LChecklist{
		OrganizationId: organizationId,
		TruckId:        input.TruckId,
		DriverId:       driverId,
		StationId:      input.StationId,
		Status:         S2LStatusDraft,
		Items:          input.Items,
		AllItemsPass:   allPass,
		CreatedLat:     input.Lat,
		CreatedLng:     input.Lng,
		SyncId:         input.SyncId,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(checklist).Error; err != nil {
			return err
		}
		payload := map[string]interface{}{
			"truck_id":       checklist.TruckId,
			"items":          checklist.Items,
			"all_items_pass": checklist.AllItemsPass,
		}
		return recordAuditEventTx(ctx, tx, AuditEventInput{
			EventType:  EventS2LCreated,
			EntityType: "s2l_checklist",
			EntityId:   checklist.ID,
			Payload:    payload,
			Lat:        input.Lat,
			Lng:        input.Lng,
		})
	})
	if err != nil {
		if isDuplicateKeyErr(err) && input.SyncId != nil {
			var existing S2LChecklist
			fetchErr := db.WithContext(ctx).
				Where("sync_id = ? AND organization_id = ?", *input.SyncId, organizationId).
				Preload("Photos").
				First(&existing).Error
			if fetchErr == nil {
				return &existing, nil
			}
		}
		return nil, err
	}
	return checklist, nil
}

type SubmitS2LInput struct {
	SignatureURL string   `json:"signature_url" binding:"required"`
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
}

// SubmitS2L moves a DRAFT checklist to SUBMITTED. The gates run in order:
// every item must pass, at least three photos must be attached, the driver's
// signature must be present, and the draft must be younger than 24 hours. A
// stale draft is marked EXPIRED before the error is raised, so it cannot be
// retried later.
func SubmitS2L(ctx context.Context, id string, input SubmitS2LInput) (*S2LChecklist, error) {
	checklist, err := fetchS2L(ctx, id)
	if err != nil {
		return nil, err
	}
	if checklist.Status != S2LStatusDraft {
		return nil, utils.NewValidationError("checklist %s is %s, only DRAFT can be submitted", id, checklist.Status)
	}

	for _, item := range checklist.Items {
		if !item.Passed {
			return nil, utils.NewValidationError("checklist item %s did not pass", item.Code)
		}
	}

	photoCount, err := CountS2LPhotos(ctx, checklist.ID)
	if err != nil {
		return nil, err
	}
	if photoCount < 3 {
		return nil, utils.NewValidationError("at least 3 photos are required, got %d", photoCount)
	}

	if input.SignatureURL == "" {
		return nil, utils.NewValidationError("driver signature is required")
	}

	now := time.Now().UTC()
	if now.Sub(checklist.CreatedAt) > s2lValidityHours*time.Hour {
		// lapse the stale draft first, then refuse
		if err := markExpired(ctx, checklist, S2LStatusDraft); err != nil {
			return nil, err
		}
		return nil, utils.NewValidationError("checklist %s is older than %d hours and has expired", id, s2lValidityHours)
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":        S2LStatusSubmitted,
			"signature_url": input.SignatureURL,
			"submitted_at":  now,
		}
		if input.Lat != nil && input.Lng != nil {
			updates["submitted_lat"] = *input.Lat
			updates["submitted_lng"] = *input.Lng
		}
		if err := tx.Model(checklist).Updates(updates).Error; err != nil {
			return err
		}
		return recordAuditEventTx(ctx, tx, AuditEventInput{
			EventType:  EventS2LSubmitted,
			EntityType: "s2l_checklist",
			EntityId:   checklist.ID,
			Payload: map[string]interface{}{
				"truck_id":    checklist.TruckId,
				"photo_count": photoCount,
			},
			Lat: input.Lat,
			Lng: input.Lng,
		})
	})
	if err != nil {
		return nil, err
	}
	return checklist, nil
}

type ReviewS2LInput struct {
	Approve      bool   `json:"approve"`
	RejectReason string `json:"reject_reason"`
}

// ReviewS2L is the supervisor's verdict on a SUBMITTED checklist.
func ReviewS2L(ctx context.Context, id string, input ReviewS2LInput) (*S2LChecklist, error) {
	role, _ := utils.GetUserRoleFromContext(ctx)
	switch UserRole(role) {
	case UserRoleSupervisor, UserRoleAdmin, UserRoleOwner:
	default:
		return nil, utils.NewPermissionError("role %s may not review checklists", role)
	}

	checklist, err := fetchS2L(ctx, id)
	if err != nil {
		return nil, err
	}
	if checklist.Status != S2LStatusSubmitted {
		return nil, utils.NewValidationError("checklist %s is %s, only SUBMITTED can be reviewed", id, checklist.Status)
	}

	reviewerId, _ := utils.GetUserIdFromContext(ctx)
	now := time.Now().UTC()

	updates := map[string]interface{}{
		"reviewed_at": now,
		"reviewed_by": reviewerId,
	}
	eventType := EventS2LRejected
	payload := map[string]interface{}{"truck_id": checklist.TruckId}
	if input.Approve {
		updates["status"] = S2LStatusApproved
		eventType = EventS2LApproved
	} else {
		updates["status"] = S2LStatusRejected
	}
	if input.RejectReason != "" {
		updates["reject_reason"] = input.RejectReason
		payload["reject_reason"] = input.RejectReason
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(checklist).Updates(updates).Error; err != nil {
			return err
		}
		return recordAuditEventTx(ctx, tx, AuditEventInput{
			EventType:  eventType,
			EntityType: "s2l_checklist",
			EntityId:   checklist.ID,
			Payload:    payload,
		})
	})
	if err != nil {
		return nil, err
	}
	return checklist, nil
}

// markExpired lapses a checklist that is still in fromStatus and journals it.
// The status guard means two callers racing here journal the lapse once.
func markExpired(ctx context.Context, checklist *S2LChecklist, fromStatus S2LStatus) error {
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&S2LChecklist{}).
			Where("id = ? AND status = ?", checklist.ID, fromStatus).
			Update("status", S2LStatusExpired)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		return recordAuditEventTx(ctx, tx, AuditEventInput{
			EventType:  EventS2LExpired,
			EntityType: "s2l_checklist",
			EntityId:   checklist.ID,
			Payload: map[string]interface{}{
				"truck_id":    checklist.TruckId,
				"from_status": fromStatus,
			},
		})
	})
	if err != nil {
		return err
	}
	checklist.Status = S2LStatusExpired
	return nil
}

func fetchS2L(ctx context.Context, id string) (*S2LChecklist, error) {
	checklist, err := utils.FetchSingleModel[S2LChecklist](ctx, id, "Photos")
	if err != nil {
		return nil, utils.NewNotFoundError("checklist %s not found", id)
	}
	return checklist, nil
}

func GetS2L(ctx context.Context, id string) (*S2LChecklist, error) {
	return fetchS2L(ctx, id)
}

type S2LFilter struct {
	Status   string `form:"status"`
	TruckId  string `form:"truck_id"`
	DriverId string `form:"driver_id"`
	Limit    int    `form:"limit"`
}

func ListS2Ls(ctx context.Context, filter S2LFilter) ([]*S2LChecklist, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, utils.NewValidationError("organization id is required")
	}

	db := config.GetDB()
	query := db.WithContext(ctx).Where("organization_id = ?", organizationId)
	if filter.Status != "" {
		status, err := ParseS2LStatus(filter.Status)
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
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var checklists []*S2LChecklist
	err := query.Preload("Photos").Order("created_at DESC").Limit(limit).Find(&checklists).Error
	if err != nil {
		return nil, err
	}
	return checklists, nil
}
