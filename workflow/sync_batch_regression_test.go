package workflow_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/fueltrack360/dispatch_backend/config"
	"github.com/fueltrack360/dispatch_backend/models"
	"github.com/fueltrack360/dispatch_backend/utils"
	"github.com/fueltrack360/dispatch_backend/workflow"
	"github.com/shopspring/decimal"
)

// Regression: replaying a device queue is safe. Duplicate sync ids resolve
// to the already-created entity, one bad operation never poisons its
// neighbors, and the whole replay is summarized in the journal.
func TestProcessSyncBatch_IdempotentReplay(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := setupWorkflowIntegrationEnv(t)
	db := config.GetDB()

	org := &models.Organization{Name: "FuelTrack Sync Co"}
	if err := db.Create(org).Error; err != nil {
		t.Fatalf("create organization: %v", err)
	}
	driver := &models.User{
		OrganizationId: org.ID,
		Name:           "Sync Driver",
		Email:          "sync-driver@e2e.test",
		Password:       "x",
		Role:           models.UserRoleDriver,
	}
	if err := db.Create(driver).Error; err != nil {
		t.Fatalf("create driver: %v", err)
	}
	truck := &models.Truck{
		OrganizationId: org.ID,
		PlateNumber:    "SYN-0001",
		CapacityLiters: decimal.NewFromInt(30000),
		Status:         models.TruckStatusIdle,
	}
	if err := db.Create(truck).Error; err != nil {
		t.Fatalf("create truck: %v", err)
	}

	driverCtx := utils.SetOrganizationIdInContext(ctx, org.ID)
	driverCtx = utils.SetUserIdInContext(driverCtx, driver.ID)
	driverCtx = utils.SetUserRoleInContext(driverCtx, string(models.UserRoleDriver))

	gpsPayload, _ := json.Marshal(models.GpsLogInput{
		TruckId:    truck.ID,
		Lat:        16.8409,
		Lng:        96.1735,
		SpeedKmh:   42.5,
		RecordedAt: time.Date(2026, 8, 30, 9, 15, 0, 0, time.UTC),
	})
	// Dangling references, so this one must fail on its own.
	manifestPayload, _ := json.Marshal(models.CreateManifestInput{
		S2LChecklistId:       "no-such-checklist",
		TruckId:              truck.ID,
		OriginTerminalId:     "no-such-terminal",
		DestinationStationId: "no-such-station",
		ProductType:          models.ProductTypeDiesel,
		LoadedVolumeLiters:   decimal.NewFromInt(10000),
	})

	batch := workflow.SyncBatchInput{
		BatchId:  "dev1-batch-001",
		DeviceId: "dev1",
		Operations: []workflow.SyncOperation{
			{SyncId: "dev1-gps-001", EntityType: models.SyncEntityGpsLog, Operation: models.SyncVerbCreate, Payload: gpsPayload},
			{SyncId: "dev1-gps-001", EntityType: models.SyncEntityGpsLog, Operation: models.SyncVerbCreate, Payload: gpsPayload},
			{SyncId: "dev1-man-001", EntityType: models.SyncEntityManifest, Operation: models.SyncVerbCreate, Payload: manifestPayload},
			{SyncId: "dev1-upd-001", EntityType: models.SyncEntityGpsLog, Operation: models.SyncVerbUpdate, Payload: gpsPayload},
			{SyncId: "dev1-unk-001", EntityType: "fuel_price", Operation: models.SyncVerbCreate, Payload: json.RawMessage(`{}`)},
		},
	}

	result, err := workflow.ProcessSyncBatch(driverCtx, batch)
	if err != nil {
		t.Fatalf("ProcessSyncBatch: %v", err)
	}
	if result.Received != 5 || result.Completed != 2 || result.Failed != 3 {
		t.Fatalf("unexpected summary: received=%d completed=%d failed=%d",
			result.Received, result.Completed, result.Failed)
	}

	// The duplicate sync id resolved to the same entity.
	if result.Results[0].Status != models.SyncStatusCompleted || result.Results[1].Status != models.SyncStatusCompleted {
		t.Fatalf("gps operations should complete: %+v", result.Results[:2])
	}
	if result.Results[0].EntityId != result.Results[1].EntityId {
		t.Fatalf("duplicate sync id created a second entity: %s vs %s",
			result.Results[0].EntityId, result.Results[1].EntityId)
	}

	// Failures carry their own reasons and stay in order.
	if result.Results[2].Status != models.SyncStatusFailed || result.Results[2].Error == "" {
		t.Fatalf("manifest op should fail with a reason: %+v", result.Results[2])
	}
	if result.Results[3].Status != models.SyncStatusFailed ||
		!strings.Contains(result.Results[3].Error, "unsupported operation") {
		t.Fatalf("UPDATE verb should be refused: %+v", result.Results[3])
	}
	if result.Results[4].Status != models.SyncStatusFailed {
		t.Fatalf("unknown entity type should fail: %+v", result.Results[4])
	}

	var gpsCount int64
	if err := db.Model(&models.GpsLog{}).Where("truck_id = ?", truck.ID).Count(&gpsCount).Error; err != nil {
		t.Fatalf("count gps logs: %v", err)
	}
	if gpsCount != 1 {
		t.Fatalf("expected exactly 1 gps log, got %d", gpsCount)
	}

	// Replaying the entire batch changes nothing.
	replay, err := workflow.ProcessSyncBatch(driverCtx, batch)
	if err != nil {
		t.Fatalf("ProcessSyncBatch replay: %v", err)
	}
	if replay.Completed != 2 || replay.Failed != 3 {
		t.Fatalf("replay summary drifted: completed=%d failed=%d", replay.Completed, replay.Failed)
	}
	if err := db.Model(&models.GpsLog{}).Where("truck_id = ?", truck.ID).Count(&gpsCount).Error; err != nil {
		t.Fatalf("count gps logs after replay: %v", err)
	}
	if gpsCount != 1 {
		t.Fatalf("replay inserted duplicates: got %d gps logs", gpsCount)
	}

	// Each replay leaves one summary row in the journal.
	page, err := models.QueryAuditEvents(driverCtx, models.AuditEventFilter{
		EventType: string(models.EventSyncBatchReceived),
		EntityId:  batch.BatchId,
	})
	if err != nil {
		t.Fatalf("QueryAuditEvents: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("expected 2 batch summary events, got %d", page.Total)
	}
	summary := page.Events[0]
	if summary.Payload["failed"] != float64(3) {
		t.Fatalf("summary payload drifted: %v", summary.Payload)
	}
}

func setupWorkflowIntegrationEnv(t *testing.T) context.Context {
	t.Helper()

	redisName, redisPort := startWorkflowRedisContainer(t)
	t.Cleanup(func() { _ = workflowDockerRmForce(redisName) })

	mysqlName, mysqlPort := startWorkflowMySQLContainer(t)
	t.Cleanup(func() { _ = workflowDockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "fueltrack_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if err := models.MigrateTables(); err != nil {
		t.Fatalf("MigrateTables: %v", err)
	}

	return context.Background()
}

func startWorkflowRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("fueltrack-test-redis-%d", time.Now().UnixNano())
	out, err := workflowDockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := workflowDockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := workflowDockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startWorkflowMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("fueltrack-test-mysql-%d", time.Now().UnixNano())
	out, err := workflowDockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=fueltrack_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := workflowDockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := workflowDockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func workflowDockerHostPort(container, portProto string) (string, error) {
	out, err := workflowDockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func workflowDockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := workflowDockerRun("rm", "-f", container)
	return err
}

func workflowDockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
