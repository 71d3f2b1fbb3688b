// Package jobs holds background task definitions and the Asynq worker glue.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeUTMQRRender renders the QR code for an event UTM link.
	TaskTypeUTMQRRender = "utm:qr_render"
	// TaskTypeStockReconcile recomputes the reserved quantity per material.
	TaskTypeStockReconcile = "stock:reconcile"
)

// UTMQRRenderPayload identifies the UTM document to render.
type UTMQRRenderPayload struct {
	UTMID string `json:"utm_id"`
}

// NewUTMQRRenderTask constructs an Asynq task for QR rendering.
func NewUTMQRRenderTask(payload UTMQRRenderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeUTMQRRender, data), nil
}

// NewStockReconcileTask constructs the nightly reconciliation task.
func NewStockReconcileTask() *asynq.Task {
	return asynq.NewTask(TaskTypeStockReconcile, nil)
}
