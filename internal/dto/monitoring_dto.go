// FILE: internal/dto/monitoring_dto.go
package dto

import "time"

// --- Health ---

type HealthResponse struct {
	Status  string `json:"status"`
	Healthy bool   `json:"healthy"`
}

// --- Cancellation Logs ---

// AttemptRecordResponse is one element of the log list endpoints, which
// serve a plain JSON array of these.
type AttemptRecordResponse struct {
	OrderId       string    `json:"orderId"`
	Amount        float64   `json:"amount"`
	OrderStatus   string    `json:"orderStatus,omitempty"`
	Success       bool      `json:"success"`
	Message       string    `json:"message"`
	Fee           *float64  `json:"fee,omitempty"`
	FailureReason *string   `json:"failureReason,omitempty"`
	ClientIP      string    `json:"clientIp,omitempty"`
	UserAgent     string    `json:"userAgent,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
