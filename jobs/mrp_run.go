package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/atlas-erp/atlas-mrp/internal/planning"
)

// ResultStore persists a finished run and its planned orders.
type ResultStore interface {
	SaveResult(ctx context.Context, result planning.RunResult) error
}

// MRPRunJob executes planning cycles from the queue.
type MRPRunJob struct {
	planner *planning.Service
	store   ResultStore
	lock    *RunLock
	logger  *slog.Logger
}

// NewMRPRunJob constructs the job. Store and lock are optional; without a
// store the result is only logged, without a lock concurrent runs for the
// same org/plant are not guarded against.
func NewMRPRunJob(planner *planning.Service, store ResultStore, lock *RunLock, logger *slog.Logger) *MRPRunJob {
	return &MRPRunJob{planner: planner, store: store, lock: lock, logger: logger}
}

// Handle processes TaskMRPRun tasks.
func (j *MRPRunJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload MRPRunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if err := validate.Struct(payload); err != nil {
		if j.logger != nil {
			j.logger.Warn("mrp run payload rejected", slog.Any("error", err))
		}
		return asynq.SkipRetry
	}
	if j.lock != nil {
		release, acquired, err := j.lock.Acquire(ctx, payload.OrganizationID, payload.PlantID)
		if err != nil {
			return err
		}
		if !acquired {
			if j.logger != nil {
				j.logger.Info("mrp run skipped, another run in progress",
					slog.Int64("organization_id", payload.OrganizationID),
					slog.Int64("plant_id", payload.PlantID))
			}
			return nil
		}
		defer release()
	}
	result, runErr := j.planner.RunMRP(ctx, payload.OrganizationID, payload.PlantID, payload.HorizonDays)
	if j.store != nil {
		if err := j.store.SaveResult(ctx, result); err != nil {
			if j.logger != nil {
				j.logger.Error("persist mrp run", slog.String("run_number", result.Run.Number), slog.Any("error", err))
			}
			if runErr == nil {
				return err
			}
		}
	}
	return runErr
}
