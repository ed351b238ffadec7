package models

import "fmt"

type S2LStatus string

const (
	S2LStatusDraft     S2LStatus = "DRAFT"
	S2LStatusSubmitted S2LStatus = "SUBMITTED"
	S2LStatusApproved  S2LStatus = "APPROVED"
	S2LStatusRejected  S2LStatus = "REJECTED"
	S2LStatusExpired   S2LStatus = "EXPIRED"
)

func ParseS2LStatus(s string) (S2LStatus, error) {
	switch S2LStatus(s) {
	case S2LStatusDraft, S2LStatusSubmitted, S2LStatusApproved, S2LStatusRejected, S2LStatusExpired:
		return S2LStatus(s), nil
	}
	return "", fmt.Errorf("invalid s2l status %q", s)
}

type S2LPhotoType string

const (
	S2LPhotoTypeFront           S2LPhotoType = "FRONT"
	S2LPhotoTypeRear            S2LPhotoType = "REAR"
	S2LPhotoTypeCompartment     S2LPhotoType = "COMPARTMENT"
	S2LPhotoTypeSafetyEquipment S2LPhotoType = "SAFETY_EQUIPMENT"
	S2LPhotoTypeOther           S2LPhotoType = "OTHER"
)

func ParseS2LPhotoType(s string) (S2LPhotoType, error) {
	switch S2LPhotoType(s) {
	case S2LPhotoTypeFront, S2LPhotoTypeRear, S2LPhotoTypeCompartment, S2LPhotoTypeSafetyEquipment, S2LPhotoTypeOther:
		return S2LPhotoType(s), nil
	}
	return "", fmt.Errorf("invalid s2l photo type %q", s)
}

type ManifestStatus string

const (
	ManifestStatusCreated     ManifestStatus = "CREATED"
	ManifestStatusLoading     ManifestStatus = "LOADING"
	ManifestStatusInTransit   ManifestStatus = "IN_TRANSIT"
	ManifestStatusArrived     ManifestStatus = "ARRIVED"
	ManifestStatusDischarging ManifestStatus = "DISCHARGING"
	ManifestStatusCompleted   ManifestStatus = "COMPLETED"
	ManifestStatusFlagged     ManifestStatus = "FLAGGED"
)

func ParseManifestStatus(s string) (ManifestStatus, error) {
	switch ManifestStatus(s) {
	case ManifestStatusCreated, ManifestStatusLoading, ManifestStatusInTransit,
		ManifestStatusArrived, ManifestStatusDischarging, ManifestStatusCompleted, ManifestStatusFlagged:
		return ManifestStatus(s), nil
	}
	return "", fmt.Errorf("invalid manifest status %q", s)
}

type ProductType string

const (
	ProductTypeDiesel     ProductType = "DIESEL"
	ProductTypeGasoline91 ProductType = "GASOLINE_91"
	ProductTypeGasoline95 ProductType = "GASOLINE_95"
	ProductTypeKerosene   ProductType = "KEROSENE"
)

func ParseProductType(s string) (ProductType, error) {
	switch ProductType(s) {
	case ProductTypeDiesel, ProductTypeGasoline91, ProductTypeGasoline95, ProductTypeKerosene:
		return ProductType(s), nil
	}
	return "", fmt.Errorf("invalid product type %q", s)
}

type TruckStatus string

const (
	TruckStatusIdle            TruckStatus = "IDLE"
	TruckStatusEnRouteTerminal TruckStatus = "EN_ROUTE_TO_TERMINAL"
	TruckStatusAtTerminal      TruckStatus = "AT_TERMINAL"
	TruckStatusLoading         TruckStatus = "LOADING"
	TruckStatusEnRouteStation  TruckStatus = "EN_ROUTE_TO_STATION"
	TruckStatusAtStation       TruckStatus = "AT_STATION"
	TruckStatusDischarging     TruckStatus = "DISCHARGING"
	TruckStatusMaintenance     TruckStatus = "MAINTENANCE"
)

func ParseTruckStatus(s string) (TruckStatus, error) {
	switch TruckStatus(s) {
	case TruckStatusIdle, TruckStatusEnRouteTerminal, TruckStatusAtTerminal, TruckStatusLoading,
		TruckStatusEnRouteStation, TruckStatusAtStation, TruckStatusDischarging, TruckStatusMaintenance:
		return TruckStatus(s), nil
	}
	return "", fmt.Errorf("invalid truck status %q", s)
}

type StationType string

const (
	StationTypeTerminal StationType = "TERMINAL"
	StationTypeStation  StationType = "STATION"
)

type UserRole string

const (
	UserRoleDriver     UserRole = "DRIVER"
	UserRoleDispatcher UserRole = "DISPATCHER"
	UserRoleSupervisor UserRole = "SUPERVISOR"
	UserRoleFinance    UserRole = "FINANCE"
	UserRoleAdmin      UserRole = "ADMIN"
	UserRoleOwner      UserRole = "OWNER"
)

// AuditEventType is the closed vocabulary of journal event tags.
type AuditEventType string

const (
	EventS2LCreated          AuditEventType = "S2L_CREATED"
	EventS2LSubmitted        AuditEventType = "S2L_SUBMITTED"
	EventS2LApproved         AuditEventType = "S2L_APPROVED"
	EventS2LRejected         AuditEventType = "S2L_REJECTED"
	EventS2LExpired          AuditEventType = "S2L_EXPIRED"
	EventManifestCreated     AuditEventType = "MANIFEST_CREATED"
	EventManifestLoading     AuditEventType = "MANIFEST_LOADING"
	EventManifestInTransit   AuditEventType = "MANIFEST_IN_TRANSIT"
	EventManifestArrived     AuditEventType = "MANIFEST_ARRIVED"
	EventManifestDischarging AuditEventType = "MANIFEST_DISCHARGING"
	EventManifestCompleted   AuditEventType = "MANIFEST_COMPLETED"
	EventManifestFlagged     AuditEventType = "MANIFEST_FLAGGED"
	EventTruckStatusChanged  AuditEventType = "TRUCK_STATUS_CHANGED"
	EventSyncBatchReceived   AuditEventType = "SYNC_BATCH_RECEIVED"
)

func ParseAuditEventType(s string) (AuditEventType, error) {
	switch AuditEventType(s) {
	case EventS2LCreated, EventS2LSubmitted, EventS2LApproved, EventS2LRejected,
		EventS2LExpired, EventManifestCreated, EventManifestLoading,
		EventManifestInTransit, EventManifestArrived, EventManifestDischarging,
		EventManifestCompleted, EventManifestFlagged, EventTruckStatusChanged,
		EventSyncBatchReceived:
		return AuditEventType(s), nil
	}
	return "", fmt.Errorf("invalid audit event type %q", s)
}

// ManifestEventType maps a persisted manifest status to its audit tag.
func ManifestEventType(status ManifestStatus) AuditEventType {
	switch status {
	case ManifestStatusLoading:
		return EventManifestLoading
	case ManifestStatusInTransit:
		return EventManifestInTransit
	case ManifestStatusArrived:
		return EventManifestArrived
	case ManifestStatusDischarging:
		return EventManifestDischarging
	case ManifestStatusCompleted:
		return EventManifestCompleted
	case ManifestStatusFlagged:
		return EventManifestFlagged
	default:
		return EventManifestCreated
	}
}

type SyncOperationVerb string

const (
	SyncVerbCreate SyncOperationVerb = "CREATE"
	SyncVerbUpdate SyncOperationVerb = "UPDATE"
	SyncVerbDelete SyncOperationVerb = "DELETE"
)

type SyncEntityType string

const (
	SyncEntityS2L      SyncEntityType = "s2l"
	SyncEntityGpsLog   SyncEntityType = "gps_log"
	SyncEntityManifest SyncEntityType = "manifest"
)

type SyncOutcomeStatus string

const (
	SyncStatusCompleted SyncOutcomeStatus = "COMPLETED"
	SyncStatusFailed    SyncOutcomeStatus = "FAILED"
	// SyncStatusConflict is reserved for bidirectional-merge cases; no entity
	// handler produces it today.
	SyncStatusConflict SyncOutcomeStatus = "CONFLICT"
)
