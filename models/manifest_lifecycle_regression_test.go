package models_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fueltrack360/dispatch_backend/config"
	"github.com/fueltrack360/dispatch_backend/models"
	"github.com/fueltrack360/dispatch_backend/utils"
	"github.com/shopspring/decimal"
)

// The wire payload names the checklist "s2l_id"; that field must land on the
// input struct, not get dropped on the floor.
func TestCreateManifestInput_DecodesChecklistReference(t *testing.T) {
	raw := []byte(`{
		"s2l_id": "chk-123",
		"truck_id": "trk-1",
		"origin_terminal_id": "tml-1",
		"destination_station_id": "stn-1",
		"product_type": "DIESEL",
		"loaded_volume_liters": "30000"
	}`)

	var input models.CreateManifestInput
	if err := json.Unmarshal(raw, &input); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if input.S2LChecklistId != "chk-123" {
		t.Fatalf("s2l_id not decoded, got %q", input.S2LChecklistId)
	}
}

// Regression: manifest numbers are a per-organization series. Two tenants
// opening their first delivery of the day must both get sequence 0001.
func TestManifestNumbers_ScopedPerOrganization(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := setupIntegrationEnv(t)

	wantNumber := fmt.Sprintf("FT360-%s-0001", time.Now().UTC().Format("20060102"))
	for _, tag := range []string{"alpha", "beta"} {
		fx := seedDeliveryFixtures(t, ctx, tag)
		checklistId := approveChecklist(t, fx)

		manifest, err := models.CreateManifest(fx.driverCtx, models.CreateManifestInput{
			S2LChecklistId:       checklistId,
			TruckId:              fx.truck.ID,
			OriginTerminalId:     fx.terminal.ID,
			DestinationStationId: fx.station.ID,
			ProductType:          models.ProductTypeDiesel,
			LoadedVolumeLiters:   decimal.NewFromInt(20000),
		})
		if err != nil {
			t.Fatalf("CreateManifest (%s): %v", tag, err)
		}
		if manifest.ManifestNumber != wantNumber {
			t.Fatalf("org %s: expected %s, got %s", tag, wantNumber, manifest.ManifestNumber)
		}
	}
}

// Regression: stages are reported by the dispatcher as they happen. An
// offline replay may skip straight ahead, and a completion without the
// discharge reading closes custody with the variance left open.
func TestManifestStages_AcceptedAsReported(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := setupIntegrationEnv(t)
	fx := seedDeliveryFixtures(t, ctx, "stages")
	checklistId := approveChecklist(t, fx)

	manifest, err := models.CreateManifest(fx.driverCtx, models.CreateManifestInput{
		S2LChecklistId:       checklistId,
		TruckId:              fx.truck.ID,
		OriginTerminalId:     fx.terminal.ID,
		DestinationStationId: fx.station.ID,
		ProductType:          models.ProductTypeGasoline95,
		LoadedVolumeLiters:   decimal.NewFromInt(18000),
	})
	if err != nil {
		t.Fatalf("CreateManifest: %v", err)
	}

	// CREATED straight to ARRIVED.
	arrived, err := models.UpdateManifestStatus(fx.driverCtx, manifest.ID, models.UpdateManifestStatusInput{
		Status: models.ManifestStatusArrived,
	})
	if err != nil {
		t.Fatalf("UpdateManifestStatus(ARRIVED): %v", err)
	}
	if arrived.Status != models.ManifestStatusArrived {
		t.Fatalf("expected ARRIVED, got %s", arrived.Status)
	}
	if arrived.ArrivedAt == nil {
		t.Fatal("ARRIVED must stamp arrived_at")
	}

	final, err := models.UpdateManifestStatus(fx.driverCtx, manifest.ID, models.UpdateManifestStatusInput{
		Status: models.ManifestStatusCompleted,
	})
	if err != nil {
		t.Fatalf("UpdateManifestStatus(COMPLETED): %v", err)
	}
	if final.Status != models.ManifestStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", final.Status)
	}
	if final.CompletedAt == nil {
		t.Fatal("completion must stamp completed_at")
	}
	if final.VariancePercent != nil {
		t.Fatalf("variance must stay open without a discharge reading, got %s", final.VariancePercent)
	}
	if final.DeliveredVolumeLiters != nil {
		t.Fatalf("delivered volume must stay null, got %s", final.DeliveredVolumeLiters)
	}
}

// Regression: a manifest needs an APPROVED checklist behind it; a draft is
// refused with a validation error, not a conflict.
func TestCreateManifest_RefusesUnapprovedChecklist(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := setupIntegrationEnv(t)
	fx := seedDeliveryFixtures(t, ctx, "unapproved")

	draft, err := models.CreateS2L(fx.driverCtx, models.CreateS2LInput{
		TruckId: fx.truck.ID,
		Items:   models.ChecklistItems{{Code: "brakes", Label: "Brakes", Passed: true}},
	})
	if err != nil {
		t.Fatalf("CreateS2L: %v", err)
	}

	_, err = models.CreateManifest(fx.driverCtx, models.CreateManifestInput{
		S2LChecklistId:       draft.ID,
		TruckId:              fx.truck.ID,
		OriginTerminalId:     fx.terminal.ID,
		DestinationStationId: fx.station.ID,
		ProductType:          models.ProductTypeDiesel,
		LoadedVolumeLiters:   decimal.NewFromInt(10000),
	})
	if err == nil {
		t.Fatal("manifest against a DRAFT checklist should be refused")
	}
	if !utils.IsValidationError(err) {
		t.Fatalf("expected a validation error, got %v", err)
	}
}

type deliveryFixtures struct {
	driverCtx     context.Context
	supervisorCtx context.Context
	truck         *models.Truck
	terminal      *models.Station
	station       *models.Station
}

func seedDeliveryFixtures(t *testing.T, ctx context.Context, tag string) *deliveryFixtures {
	t.Helper()
	db := config.GetDB()

	org := &models.Organization{Name: fmt.Sprintf("FuelTrack %s Co", tag)}
	if err := db.Create(org).Error; err != nil {
		t.Fatalf("create organization: %v", err)
	}
	driver := &models.User{
		OrganizationId: org.ID,
		Name:           "Driver " + tag,
		Email:          fmt.Sprintf("driver-%s@e2e.test", tag),
		Password:       "x",
		Role:           models.UserRoleDriver,
	}
	supervisor := &models.User{
		OrganizationId: org.ID,
		Name:           "Supervisor " + tag,
		Email:          fmt.Sprintf("supervisor-%s@e2e.test", tag),
		Password:       "x",
		Role:           models.UserRoleSupervisor,
	}
	if err := db.Create(driver).Error; err != nil {
		t.Fatalf("create driver: %v", err)
	}
	if err := db.Create(supervisor).Error; err != nil {
		t.Fatalf("create supervisor: %v", err)
	}
	truck := &models.Truck{
		OrganizationId: org.ID,
		PlateNumber:    fmt.Sprintf("TST-%s", tag),
		CapacityLiters: decimal.NewFromInt(36000),
		Status:         models.TruckStatusIdle,
	}
	if err := db.Create(truck).Error; err != nil {
		t.Fatalf("create truck: %v", err)
	}
	terminal := &models.Station{
		OrganizationId:  org.ID,
		Name:            "Terminal " + tag,
		Code:            "TML-" + tag,
		Type:            models.StationTypeTerminal,
		GpsLat:          16.6415,
		GpsLng:          96.2534,
		GeofenceRadiusM: 500,
	}
	station := &models.Station{
		OrganizationId:  org.ID,
		Name:            "Station " + tag,
		Code:            "STN-" + tag,
		Type:            models.StationTypeStation,
		GpsLat:          16.8661,
		GpsLng:          96.1201,
		GeofenceRadiusM: 250,
	}
	if err := db.Create(terminal).Error; err != nil {
		t.Fatalf("create terminal: %v", err)
	}
	if err := db.Create(station).Error; err != nil {
		t.Fatalf("create station: %v", err)
	}

	driverCtx := utils.SetOrganizationIdInContext(ctx, org.ID)
	driverCtx = utils.SetUserIdInContext(driverCtx, driver.ID)
	driverCtx = utils.SetUserRoleInContext(driverCtx, string(models.UserRoleDriver))

	supervisorCtx := utils.SetOrganizationIdInContext(ctx, org.ID)
	supervisorCtx = utils.SetUserIdInContext(supervisorCtx, supervisor.ID)
	supervisorCtx = utils.SetUserRoleInContext(supervisorCtx, string(models.UserRoleSupervisor))

	return &deliveryFixtures{
		driverCtx:     driverCtx,
		supervisorCtx: supervisorCtx,
		truck:         truck,
		terminal:      terminal,
		station:       station,
	}
}

// approveChecklist walks a checklist through its full happy path and returns
// the approved id.
func approveChecklist(t *testing.T, fx *deliveryFixtures) string {
	t.Helper()

	checklist, err := models.CreateS2L(fx.driverCtx, models.CreateS2LInput{
		TruckId: fx.truck.ID,
		Items: models.ChecklistItems{
			{Code: "brakes", Label: "Brakes", Passed: true},
			{Code: "valves", Label: "Compartment valves", Passed: true},
		},
	})
	if err != nil {
		t.Fatalf("CreateS2L: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := models.AddS2LPhoto(fx.driverCtx, checklist.ID, models.AddS2LPhotoInput{
			Type: models.S2LPhotoTypeOther,
			URL:  fmt.Sprintf("https://storage/%s/%d.jpg", checklist.ID, i),
		}); err != nil {
			t.Fatalf("AddS2LPhoto: %v", err)
		}
	}
	if _, err := models.SubmitS2L(fx.driverCtx, checklist.ID, models.SubmitS2LInput{
		SignatureURL: "https://storage/sig.png",
	}); err != nil {
		t.Fatalf("SubmitS2L: %v", err)
	}
	if _, err := models.ReviewS2L(fx.supervisorCtx, checklist.ID, models.ReviewS2LInput{Approve: true}); err != nil {
		t.Fatalf("ReviewS2L: %v", err)
	}
	return checklist.ID
}
