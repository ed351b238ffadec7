package models

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fueltrack360/dispatch_backend/config"
	"github.com/fueltrack360/dispatch_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JSONMap stores an arbitrary JSON object in a single column.
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for JSONMap", value)
	}
	return json.Unmarshal(raw, m)
}

// AuditEvent is one row of the append-only journal. Rows are never updated
// or deleted; the database enforces that with triggers and the hooks below
// stop in-process attempts before they reach the wire.
type AuditEvent struct {
	ID             string         `gorm:"primaryKey;size:36" json:"id"`
	OrganizationId string         `gorm:"index:idx_audit_org_time;size:36;not null" json:"organization_id"`
	EventType      AuditEventType `gorm:"index;size:40;not null" json:"event_type"`
	EntityType     string         `gorm:"index:idx_audit_entity;size:40;not null" json:"entity_type"`
	EntityId       string         `gorm:"index:idx_audit_entity;size:36;not null" json:"entity_id"`
	ActorId        *string        `gorm:"size:36" json:"actor_id"`
	ActorRole      *string        `gorm:"size:20" json:"actor_role"`
	CorrelationId  string         `gorm:"size:64" json:"correlation_id"`
	Payload        JSONMap        `gorm:"type:json" json:"payload"`
	Lat            *float64       `gorm:"type:decimal(10,7)" json:"lat"`
	Lng            *float64       `gorm:"type:decimal(10,7)" json:"lng"`
	IpAddress      *string        `gorm:"size:45" json:"ip_address"`
	UserAgent      *string        `gorm:"size:512" json:"user_agent"`
	CreatedAt      time.Time      `gorm:"index:idx_audit_org_time;autoCreateTime" json:"created_at"`
}

func (e *AuditEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

func (e *AuditEvent) BeforeUpdate(tx *gorm.DB) error {
	return errors.New("audit events are append-only")
}

func (e *AuditEvent) BeforeDelete(tx *gorm.DB) error {
	return errors.New("audit events are append-only")
}

type AuditEventInput struct {
	EventType  AuditEventType
	EntityType string
	EntityId   string
	Payload    map[string]interface{}
	Lat        *float64
	Lng        *float64
	IpAddress  *string
	UserAgent  *string
}

// RecordAuditEvent appends one journal row in its own transaction.
func RecordAuditEvent(ctx context.Context, input AuditEventInput) (*AuditEvent, error) {
	db := config.GetDB()
	var event *AuditEvent
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		event, txErr = appendAuditEvent(ctx, tx, input)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// recordAuditEventTx appends a journal row inside the caller's transaction so
// the business write and its audit row commit or roll back together.
func recordAuditEventTx(ctx context.Context, tx *gorm.DB, input AuditEventInput) error {
	_, err := appendAuditEvent(ctx, tx, input)
	return err
}

func appendAuditEvent(ctx context.Context, tx *gorm.DB, input AuditEventInput) (*AuditEvent, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, utils.NewValidationError("organization id is required")
	}

	var actorId *string
	if userId, ok := utils.GetUserIdFromContext(ctx); ok && userId != "" {
		actorId = &userId
	}
	var actorRole *string
	if role, ok := utils.GetUserRoleFromContext(ctx); ok && role != "" {
		actorRole = &role
	}
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)

	event := &AuditEvent{
		OrganizationId: organizationId,
		EventType:      input.EventType,
		EntityType:     input.EntityType,
		EntityId:       input.EntityId,
		ActorId:        actorId,
		ActorRole:      actorRole,
		CorrelationId:  correlationId,
		Payload:        JSONMap(input.Payload),
		Lat:            input.Lat,
		Lng:            input.Lng,
		IpAddress:      input.IpAddress,
		UserAgent:      input.UserAgent,
	}
	if err := tx.Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

type AuditEventFilter struct {
	EventType  string     `form:"event_type"`
	EntityType string     `form:"entity_type"`
	EntityId   string     `form:"entity_id"`
	ActorId    string     `form:"actor_id"`
	From       *time.Time `form:"from"`
	To         *time.Time `form:"to"`
	Page       int        `form:"page"`
	PageSize   int        `form:"page_size"`
}

type AuditEventPage struct {
	Events   []*AuditEvent `json:"events"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// QueryAuditEvents reads the journal newest-first with optional filters.
func QueryAuditEvents(ctx context.Context, filter AuditEventFilter) (*AuditEventPage, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, utils.NewValidationError("organization id is required")
	}

	db := config.GetDB()
	query := db.WithContext(ctx).Model(&AuditEvent{}).
		Where("organization_id = ?", organizationId)
	if filter.EventType != "" {
		query = query.Where("event_type = ?", filter.EventType)
	}
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityId != "" {
		query = query.Where("entity_id = ?", filter.EntityId)
	}
	if filter.ActorId != "" {
		query = query.Where("actor_id = ?", filter.ActorId)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	var events []*AuditEvent
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&events).Error
	if err != nil {
		return nil, err
	}

	return &AuditEventPage{Events: events, Total: total, Page: page, PageSize: pageSize}, nil
}
