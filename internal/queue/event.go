// Package queue defines message payloads exchanged over the message broker.
package queue

// NotificationEvent is published when the engine records a new notification.
// It contains enough information for downstream consumers to log or deliver
// without querying the primary database.
type NotificationEvent struct {
	NotificationID int64  `json:"notification_id"`
	Site           string `json:"site"`
	SubjectID      int64  `json:"subject_id"`
	SubjectName    string `json:"subject_name"`
	ObserverID     *int64 `json:"observer_id,omitempty"`
	Category       string `json:"category"`
	CreatedAt      string `json:"created_at"`
}
