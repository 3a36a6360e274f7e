package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskLeadSyncRepair = "leadsync.repair"

const TaskStockLowAlert = "inventory.stock_low.alert"

type LeadSyncRepairPayload struct {
	FailureID string `json:"failureId"`
}

type StockLowAlertPayload struct {
	ProductID   string    `json:"productId"`
	ProductName string    `json:"productName"`
	Stock       int       `json:"stock"`
	Threshold   int       `json:"threshold"`
	OccurredAt  time.Time `json:"occurredAt"`
}

func NewLeadSyncRepairTask(payload LeadSyncRepairPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadSyncRepair, data), nil
}

func ParseLeadSyncRepairPayload(task *asynq.Task) (LeadSyncRepairPayload, error) {
	var payload LeadSyncRepairPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadSyncRepairPayload{}, err
	}
	return payload, nil
}

func NewStockLowAlertTask(payload StockLowAlertPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockLowAlert, data), nil
}

func ParseStockLowAlertPayload(task *asynq.Task) (StockLowAlertPayload, error) {
	var payload StockLowAlertPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return StockLowAlertPayload{}, err
	}
	return payload, nil
}
