package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/fueltrack360/dispatch_backend/config"
	"github.com/fueltrack360/dispatch_backend/models"
	"github.com/fueltrack360/dispatch_backend/utils"
)

const maxBatchSize = 50

// SyncOperation is one offline mutation replayed by a device. The sync id
// is the device-generated dedup key; replaying the same id is safe.
type SyncOperation struct {
	SyncId     string                   `json:"sync_id" binding:"required"`
	EntityType models.SyncEntityType    `json:"entity_type" binding:"required"`
	Operation  models.SyncOperationVerb `json:"operation" binding:"required"`
	EntityId   *string                  `json:"entity_id"`
	Payload    json.RawMessage          `json:"payload" binding:"required"`
	QueuedAt   *time.Time               `json:"queued_at"`
}

type SyncBatchInput struct {
	BatchId    string          `json:"batch_id" binding:"required"`
	DeviceId   string          `json:"device_id"`
	Operations []SyncOperation `json:"operations" binding:"required"`
}

type SyncOperationResult struct {
	SyncId   string                   `json:"sync_id"`
	Status   models.SyncOutcomeStatus `json:"status"`
	EntityId string                   `json:"entity_id,omitempty"`
	Error    string                   `json:"error,omitempty"`
}

type SyncBatchResult struct {
	BatchId   string                `json:"batch_id"`
	Received  int                   `json:"received"`
	Completed int                   `json:"completed"`
	Failed    int                   `json:"failed"`
	Conflicts int                   `json:"conflicts"`
	Results   []SyncOperationResult `json:"results"`
}

// ProcessSyncBatch replays a device's queued mutations strictly in order.
// Each operation succeeds or fails on its own; a failure never aborts the
// rest of the batch. The whole batch is summarized in one journal row.
func ProcessSyncBatch(ctx context.Context, input SyncBatchInput) (*SyncBatchResult, error) {
	if len(input.Operations) == 0 {
		return nil, utils.NewValidationError("batch has no operations")
	}
	if len(input.Operations) > maxBatchSize {
		return nil, utils.NewValidationError("batch has %d operations, max is %d", len(input.Operations), maxBatchSize)
	}

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, utils.NewValidationError("organization id is required")
	}

	// One batch id processes at a time. Replays of a finished batch still
	// resolve per-operation through the sync id dedup.
	release, err := acquireBatchLock(ctx, organizationId, input.BatchId)
	if err != nil {
		return nil, err
	}
	defer release()

	logger := config.GetLogger()
	result := &SyncBatchResult{
		BatchId:  input.BatchId,
		Received: len(input.Operations),
		Results:  make([]SyncOperationResult, 0, len(input.Operations)),
	}

	for _, op := range input.Operations {
		opResult := applySyncOperation(ctx, op)
		switch opResult.Status {
		case models.SyncStatusCompleted:
			result.Completed++
		case models.SyncStatusConflict:
			result.Conflicts++
		default:
			result.Failed++
			config.LogError(logger, "workflow", "ProcessSyncBatch",
				fmt.Sprintf("operation %s failed", op.SyncId),
				map[string]interface{}{"batch_id": input.BatchId, "entity_type": op.EntityType},
				fmt.Errorf("%s", opResult.Error))
		}
		result.Results = append(result.Results, opResult)
	}

	_, err = models.RecordAuditEvent(ctx, models.AuditEventInput{
		EventType:  models.EventSyncBatchReceived,
		EntityType: "sync_batch",
		EntityId:   input.BatchId,
		Payload: map[string]interface{}{
			"device_id": input.DeviceId,
			"received":  result.Received,
			"completed": result.Completed,
			"failed":    result.Failed,
			"conflicts": result.Conflicts,
		},
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// applySyncOperation runs one mutation and never lets its error escape the
// batch loop.
func applySyncOperation(ctx context.Context, op SyncOperation) SyncOperationResult {
	result := SyncOperationResult{SyncId: op.SyncId, Status: models.SyncStatusCompleted}

	if op.Operation != models.SyncVerbCreate {
		result.Status = models.SyncStatusFailed
		result.Error = fmt.Sprintf("unsupported operation %s for %s", op.Operation, op.EntityType)
		return result
	}

	entityId, err := createFromSyncPayload(ctx, op)
	if err != nil {
		result.Status = models.SyncStatusFailed
		result.Error = err.Error()
		return result
	}
	result.EntityId = entityId
	return result
}

func createFromSyncPayload(ctx context.Context, op SyncOperation) (string, error) {
	switch op.EntityType {
	case models.SyncEntityS2L:
		var input models.CreateS2LInput
		if err := json.Unmarshal(op.Payload, &input); err != nil {
			return "", utils.NewValidationError("malformed s2l payload: %s", err.Error())
		}
		input.SyncId = &op.SyncId
		checklist, err := models.CreateS2L(ctx, input)
		if err != nil {
			return "", err
		}
		return checklist.ID, nil

	case models.SyncEntityGpsLog:
		var input models.GpsLogInput
		if err := json.Unmarshal(op.Payload, &input); err != nil {
			return "", utils.NewValidationError("malformed gps payload: %s", err.Error())
		}
		input.SyncId = &op.SyncId
		log, err := models.IngestGpsLog(ctx, input)
		if err != nil {
			return "", err
		}
		return log.ID, nil

	case models.SyncEntityManifest:
		var input models.CreateManifestInput
		if err := json.Unmarshal(op.Payload, &input); err != nil {
			return "", utils.NewValidationError("malformed manifest payload: %s", err.Error())
		}
		input.SyncId = &op.SyncId
		manifest, err := models.CreateManifest(ctx, input)
		if err != nil {
			return "", err
		}
		return manifest.ID, nil

	default:
		return "", utils.NewValidationError("unknown entity type %s", op.EntityType)
	}
}

// acquireBatchLock serializes processing of one batch id across instances.
func acquireBatchLock(ctx context.Context, organizationId, batchId string) (func(), error) {
	locker := config.GetRedisLock()
	if locker == nil {
		return func() {}, nil
	}

	key := fmt.Sprintf("sync:batch:%s:%s", organizationId, batchId)
	lock, err := locker.Obtain(ctx, key, 2*time.Minute, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(200*time.Millisecond), 5),
	})
	if err == redislock.ErrNotObtained {
		return nil, utils.NewConflictError("batch %s is already being processed", batchId)
	}
	if err != nil {
		return nil, err
	}
	return func() { _ = lock.Release(context.Background()) }, nil
}
