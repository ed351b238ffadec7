package workflow_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/fueltrack360/dispatch_backend/models"
	"github.com/fueltrack360/dispatch_backend/utils"
	"github.com/fueltrack360/dispatch_backend/workflow"
)

func TestProcessSyncBatch_RejectsEmptyBatch(t *testing.T) {
	_, err := workflow.ProcessSyncBatch(context.Background(), workflow.SyncBatchInput{
		BatchId: "batch-empty",
	})
	if err == nil {
		t.Fatal("empty batch must be rejected")
	}
	if !utils.IsValidationError(err) {
		t.Fatalf("expected a validation error, got %v", err)
	}
}

func TestProcessSyncBatch_RejectsOversizedBatch(t *testing.T) {
	ops := make([]workflow.SyncOperation, 51)
	for i := range ops {
		ops[i] = workflow.SyncOperation{
			SyncId:     fmt.Sprintf("op-%d", i),
			EntityType: models.SyncEntityGpsLog,
			Operation:  models.SyncVerbCreate,
			Payload:    json.RawMessage(`{}`),
		}
	}
	_, err := workflow.ProcessSyncBatch(context.Background(), workflow.SyncBatchInput{
		BatchId:    "batch-too-big",
		Operations: ops,
	})
	if err == nil {
		t.Fatal("a batch above the size cap must be rejected")
	}
	if !utils.IsValidationError(err) {
		t.Fatalf("expected a validation error, got %v", err)
	}
}
