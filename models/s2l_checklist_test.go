package models_test

import (
	"testing"

	"github.com/fueltrack360/dispatch_backend/models"
)

func TestChecklistItems_ScanValue(t *testing.T) {
	items := models.ChecklistItems{
		{Code: "brakes", Label: "Brake check", Passed: true},
		{Code: "valves", Label: "Compartment valves sealed", Passed: false, Note: "valve 3 leaking"},
	}

	raw, err := items.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var decoded models.ChecklistItems
	if err := decoded.Scan(raw); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 items, got %d", len(decoded))
	}
	if decoded[1].Note != "valve 3 leaking" {
		t.Fatalf("note lost in round trip: %q", decoded[1].Note)
	}
	if decoded[0].Passed != true || decoded[1].Passed != false {
		t.Fatal("passed flags lost in round trip")
	}
}

func TestChecklistItems_ScanNil(t *testing.T) {
	var items models.ChecklistItems
	if err := items.Scan(nil); err != nil {
		t.Fatalf("Scan(nil): %v", err)
	}
	if items != nil {
		t.Fatal("expected nil items for NULL column")
	}
}

func TestJSONMap_ScanString(t *testing.T) {
	var m models.JSONMap
	if err := m.Scan(`{"truck_id":"t1","item_count":12}`); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if m["truck_id"] != "t1" {
		t.Fatalf("expected truck_id=t1, got %v", m["truck_id"])
	}
}

func TestParseS2LStatus(t *testing.T) {
	for _, valid := range []string{"DRAFT", "SUBMITTED", "APPROVED", "REJECTED", "EXPIRED"} {
		if _, err := models.ParseS2LStatus(valid); err != nil {
			t.Fatalf("ParseS2LStatus(%s): %v", valid, err)
		}
	}
	if _, err := models.ParseS2LStatus("draft"); err == nil {
		t.Fatal("lowercase status must be rejected")
	}
	if _, err := models.ParseS2LStatus("CANCELLED"); err == nil {
		t.Fatal("unknown status must be rejected")
	}
}

func TestManifestEventType(t *testing.T) {
	cases := map[models.ManifestStatus]models.AuditEventType{
		models.ManifestStatusLoading:     models.EventManifestLoading,
		models.ManifestStatusInTransit:   models.EventManifestInTransit,
		models.ManifestStatusArrived:     models.EventManifestArrived,
		models.ManifestStatusDischarging: models.EventManifestDischarging,
		models.ManifestStatusCompleted:   models.EventManifestCompleted,
		models.ManifestStatusFlagged:     models.EventManifestFlagged,
	}
	for status, want := range cases {
		if got := models.ManifestEventType(status); got != want {
			t.Fatalf("ManifestEventType(%s): expected %s, got %s", status, want, got)
		}
	}
}
