package models_test

import (
	"os"
	"strings"
	"testing"

	"github.com/fueltrack360/dispatch_backend/config"
	"github.com/fueltrack360/dispatch_backend/models"
	"github.com/fueltrack360/dispatch_backend/utils"
)

// Regression: journal rows must survive both ORM-level and raw SQL
// tampering attempts. The guard triggers make the table append-only for
// every client, not just this process.
func TestAuditEvents_AppendOnly(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := setupIntegrationEnv(t)
	db := config.GetDB()

	org := &models.Organization{Name: "FuelTrack Audit Co"}
	if err := db.Create(org).Error; err != nil {
		t.Fatalf("create organization: %v", err)
	}

	actorCtx := utils.SetOrganizationIdInContext(ctx, org.ID)
	actorCtx = utils.SetCorrelationIdInContext(actorCtx, "audit-test-1")

	event, err := models.RecordAuditEvent(actorCtx, models.AuditEventInput{
		EventType:  models.EventTruckStatusChanged,
		EntityType: "truck",
		EntityId:   "truck-1",
		Payload:    map[string]interface{}{"previous_status": "IDLE", "new_status": "LOADING"},
	})
	if err != nil {
		t.Fatalf("RecordAuditEvent: %v", err)
	}
	if event.CorrelationId != "audit-test-1" {
		t.Fatalf("correlation id not propagated, got %q", event.CorrelationId)
	}

	// ORM update is stopped by the model hook.
	err = db.Model(&models.AuditEvent{}).
		Where("id = ?", event.ID).
		Update("entity_id", "tampered").Error
	if err == nil {
		t.Fatal("ORM update of a journal row must fail")
	}

	// Raw SQL is stopped by the database trigger.
	err = db.Exec("UPDATE audit_events SET entity_id = 'tampered' WHERE id = ?", event.ID).Error
	if err == nil {
		t.Fatal("raw UPDATE of a journal row must fail")
	}
	err = db.Exec("DELETE FROM audit_events WHERE id = ?", event.ID).Error
	if err == nil {
		t.Fatal("raw DELETE of a journal row must fail")
	}

	// The row is untouched.
	var got models.AuditEvent
	if err := db.Where("id = ?", event.ID).First(&got).Error; err != nil {
		t.Fatalf("reload event: %v", err)
	}
	if got.EntityId != "truck-1" {
		t.Fatalf("journal row was tampered: %q", got.EntityId)
	}
}
