package jobs

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/atlas-erp/atlas-mrp/internal/bom"
	"github.com/atlas-erp/atlas-mrp/internal/planning"
)

type stubPorts struct {
	materials []planning.Material
	gross     float64
}

func (s *stubPorts) GetMaterial(ctx context.Context, id int64) (planning.Material, bool, error) {
	for _, m := range s.materials {
		if m.ID == id {
			return m, true, nil
		}
	}
	return planning.Material{}, false, nil
}

func (s *stubPorts) ListMRPMaterials(ctx context.Context, organizationID, plantID int64) ([]planning.Material, error) {
	return s.materials, nil
}

func (s *stubPorts) OnHand(ctx context.Context, materialID int64) (float64, error) { return 0, nil }

func (s *stubPorts) GrossRequirements(ctx context.Context, materialID int64, from, to time.Time) (float64, error) {
	return s.gross, nil
}

func (s *stubPorts) ScheduledReceipts(ctx context.Context, materialID int64, from, to time.Time) (float64, error) {
	return 0, nil
}

func (s *stubPorts) GetWorkOrder(ctx context.Context, id int64) (planning.WorkOrder, bool, error) {
	return planning.WorkOrder{}, false, nil
}

type stubBOMRepo struct{}

func (stubBOMRepo) GetHeader(ctx context.Context, id int64) (bom.Header, bool, error) {
	return bom.Header{}, false, nil
}

func (stubBOMRepo) GetActiveByMaterial(ctx context.Context, materialID int64) (bom.Header, bool, error) {
	return bom.Header{}, false, nil
}

type captureStore struct {
	saved []planning.RunResult
}

func (c *captureStore) SaveResult(ctx context.Context, result planning.RunResult) error {
	c.saved = append(c.saved, result)
	return nil
}

func newStubPlanner(ports *stubPorts) *planning.Service {
	return planning.NewService(ports, ports, ports, bom.NewService(stubBOMRepo{}, nil), nil)
}

func TestNewMRPRunTaskValidation(t *testing.T) {
	_, err := NewMRPRunTask(MRPRunPayload{OrganizationID: 1, PlantID: 1})
	require.Error(t, err, "horizon_days is required")

	_, err = NewMRPRunTask(MRPRunPayload{OrganizationID: 1, PlantID: 1, HorizonDays: -5})
	require.Error(t, err)

	task, err := NewMRPRunTask(MRPRunPayload{OrganizationID: 1, PlantID: 2, HorizonDays: 90})
	require.NoError(t, err)
	require.Equal(t, TaskMRPRun, task.Type())
}

func TestMRPRunJobHandle(t *testing.T) {
	ports := &stubPorts{
		materials: []planning.Material{{ID: 1, MRPType: planning.MRPTypePlanned, IsActive: true, ProcurementType: planning.ProcurementPurchase, LotSize: 10}},
		gross:     25,
	}
	store := &captureStore{}
	job := NewMRPRunJob(newStubPlanner(ports), store, nil, nil)

	task, err := NewMRPRunTask(MRPRunPayload{OrganizationID: 1, PlantID: 1, HorizonDays: 30})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, store.saved, 1)
	require.Equal(t, planning.RunStatusCompleted, store.saved[0].Run.Status)
	require.Len(t, store.saved[0].Orders, 1)
}

func TestMRPRunJobRejectsMalformedPayload(t *testing.T) {
	job := NewMRPRunJob(newStubPlanner(&stubPorts{}), nil, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskMRPRun, []byte("{not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), asynq.NewTask(TaskMRPRun, []byte(`{"organization_id":0,"plant_id":1,"horizon_days":30}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestClientEnqueueMRPRun(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(asynq.RedisClientOpt{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	// Payload validation fails before anything reaches the queue.
	_, err = client.EnqueueMRPRun(ctx, MRPRunPayload{OrganizationID: 1, PlantID: 1})
	require.Error(t, err)

	info, err := client.EnqueueMRPRun(ctx, MRPRunPayload{OrganizationID: 1, PlantID: 1, HorizonDays: 30})
	require.NoError(t, err)
	require.Equal(t, TaskMRPRun, info.Type)
	require.Equal(t, QueueDefault, info.Queue)
}

func TestRunLockSerialisesRuns(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	lock := NewRunLock(client, time.Minute)
	ctx := context.Background()

	release, acquired, err := lock.Acquire(ctx, 1, 1)
	require.NoError(t, err)
	require.True(t, acquired)

	_, again, err := lock.Acquire(ctx, 1, 1)
	require.NoError(t, err)
	require.False(t, again, "second acquire while held must fail")

	_, other, err := lock.Acquire(ctx, 1, 2)
	require.NoError(t, err)
	require.True(t, other, "a different plant is independent")

	release()
	_, reacquired, err := lock.Acquire(ctx, 1, 1)
	require.NoError(t, err)
	require.True(t, reacquired)
}
