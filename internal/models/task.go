package models

import "time"

// TaskState tracks a notification task through its lifecycle.
type TaskState string

const (
	TaskCreated   TaskState = "created"
	TaskInFlight  TaskState = "in_flight"
	TaskDelivered TaskState = "delivered"
	TaskExhausted TaskState = "exhausted"
)

// Task wraps an alert payload for asynchronous delivery. The correlation id
// is captured once at creation and travels with the task through every retry
// attempt and across the broker boundary.
type Task struct {
	CorrelationID string
	Kind          string
	Payload       interface{}
	Attempts      int
	State         TaskState
	CreatedAt     time.Time
}
