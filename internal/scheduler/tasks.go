package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskFeasibilityCheck = "properties.feasibility_check"

const TaskActivationRun = "activation.run"

type FeasibilityCheckPayload struct {
	PropertyID string `json:"propertyId"`
	Day        string `json:"day"`
}

type ActivationPayload struct {
	PropertyID string `json:"propertyId"`
	Reason     string `json:"reason,omitempty"`
}

func NewFeasibilityCheckTask(payload FeasibilityCheckPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFeasibilityCheck, data), nil
}

func ParseFeasibilityCheckPayload(task *asynq.Task) (FeasibilityCheckPayload, error) {
	var payload FeasibilityCheckPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return FeasibilityCheckPayload{}, err
	}
	return payload, nil
}

func NewActivationTask(payload ActivationPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskActivationRun, data), nil
}

func ParseActivationPayload(task *asynq.Task) (ActivationPayload, error) {
	var payload ActivationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ActivationPayload{}, err
	}
	return payload, nil
}
