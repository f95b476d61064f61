package jobs

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskMRPRun triggers a full planning cycle for an org/plant.
	TaskMRPRun = "mrp:run"
)

var validate = validator.New()

// MRPRunPayload carries the parameters of a planning cycle.
type MRPRunPayload struct {
	OrganizationID int64 `json:"organization_id" validate:"required,gt=0"`
	PlantID        int64 `json:"plant_id" validate:"required,gt=0"`
	HorizonDays    int   `json:"horizon_days" validate:"required,gt=0"`
}

// NewMRPRunTask constructs an Asynq task for a planning cycle.
func NewMRPRunTask(payload MRPRunPayload) (*asynq.Task, error) {
	if err := validate.Struct(payload); err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMRPRun, body, asynq.Queue(QueueDefault)), nil
}
