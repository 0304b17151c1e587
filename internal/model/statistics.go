package model

import "time"

// CancellationStatistics is derived on demand over a time window and never
// persisted. SuccessfulCancellations + FailedCancellations equals
// TotalAttempts only when every fetched record carries a boolean outcome;
// rows without one still count toward TotalAttempts.
type CancellationStatistics struct {
	TotalAttempts           int       `json:"totalAttempts"`
	SuccessfulCancellations int       `json:"successfulCancellations"`
	FailedCancellations     int       `json:"failedCancellations"`
	SuccessRate             float64   `json:"successRate"`
	TotalFeesCollected      float64   `json:"totalFeesCollected"`
	AverageFee              float64   `json:"averageFee"`
	AverageOrderAmount      float64   `json:"averageOrderAmount"`
	TopFailureReason        string    `json:"topFailureReason,omitempty"`
	StartDate               time.Time `json:"startDate"`
	EndDate                 time.Time `json:"endDate"`
}
