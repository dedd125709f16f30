package alerts

import "time"

// Task types.
const (
	TaskServiceUpdate = "notify:service_update"
	TaskStaleService  = "notify:stale_service"
)

// Queues, by priority.
const (
	QueueNotifications = "notifications"
	QueueAlerts        = "alerts"
)

// ServiceUpdatePayload tells the other parties of a service what happened.
type ServiceUpdatePayload struct {
	EventID    string    `json:"event_id"`
	Seq        uint64    `json:"seq"`
	Kind       string    `json:"kind"`
	ServiceID  uint64    `json:"service_id"`
	Recipients []string  `json:"recipients"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	At         time.Time `json:"at"`
}

// StaleServicePayload asks admins and both parties to look at an idle service.
type StaleServicePayload struct {
	ServiceID  uint64    `json:"service_id"`
	Recipients []string  `json:"recipients"`
	Status     string    `json:"status"`
	IdleFor    uint64    `json:"idle_for"`
	At         time.Time `json:"at"`
}
