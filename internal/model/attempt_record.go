// FILE: internal/model/attempt_record.go
package model

import "time"

// CancellationAttemptRecord is one structured entry per cancellation attempt,
// success or failure. Records are immutable once sent to the log backend;
// retention is the backend's concern.
type CancellationAttemptRecord struct {
	OrderId       string
	Amount        float64
	OrderStatus   OrderStatus
	Success       bool
	Message       string
	Fee           *float64
	FailureReason *string
	ClientIP      string
	UserAgent     string
	Timestamp     time.Time
}

// Event field names as stored in the backend dataset.
const (
	FieldTime          = "_time"
	FieldOrderId       = "order_id"
	FieldAmount        = "amount"
	FieldOrderStatus   = "order_status"
	FieldSuccess       = "success"
	FieldMessage       = "message"
	FieldFee           = "fee"
	FieldFailureReason = "failure_reason"
	FieldClientIP      = "client_ip"
	FieldUserAgent     = "user_agent"
)

// ToEvent maps the record to the flat event shape the backend ingests.
// Fee and FailureReason are mutually exclusive: only the one consistent
// with the outcome is written, regardless of what the struct carries.
func (r *CancellationAttemptRecord) ToEvent() map[string]interface{} {
	event := map[string]interface{}{
		FieldOrderId:     r.OrderId,
		FieldAmount:      r.Amount,
		FieldOrderStatus: string(r.OrderStatus),
		FieldSuccess:     r.Success,
		FieldMessage:     r.Message,
	}

	if !r.Timestamp.IsZero() {
		event[FieldTime] = r.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	if r.Success && r.Fee != nil {
		event[FieldFee] = *r.Fee
	}
	if !r.Success && r.FailureReason != nil {
		event[FieldFailureReason] = *r.FailureReason
	}
	if r.ClientIP != "" {
		event[FieldClientIP] = r.ClientIP
	}
	if r.UserAgent != "" {
		event[FieldUserAgent] = r.UserAgent
	}

	return event
}

// AttemptRecordFromMatch rebuilds a record from a raw query row. The second
// return value reports whether the row carries a boolean outcome flag; rows
// without one predate this schema (or were written by another producer) and
// cannot be bucketed as success or failure.
func AttemptRecordFromMatch(data map[string]interface{}) (*CancellationAttemptRecord, bool) {
	record := &CancellationAttemptRecord{}

	if v, ok := data[FieldOrderId].(string); ok {
		record.OrderId = v
	}
	if v, ok := toFloat(data[FieldAmount]); ok {
		record.Amount = v
	}
	if v, ok := data[FieldOrderStatus].(string); ok {
		record.OrderStatus = OrderStatus(v)
	}
	if v, ok := data[FieldMessage].(string); ok {
		record.Message = v
	}
	if v, ok := toFloat(data[FieldFee]); ok {
		fee := v
		record.Fee = &fee
	}
	if v, ok := data[FieldFailureReason].(string); ok && v != "" {
		reason := v
		record.FailureReason = &reason
	}
	if v, ok := data[FieldClientIP].(string); ok {
		record.ClientIP = v
	}
	if v, ok := data[FieldUserAgent].(string); ok {
		record.UserAgent = v
	}
	if v, ok := data[FieldTime].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
			record.Timestamp = ts
		}
	}

	outcome, hasOutcome := data[FieldSuccess].(bool)
	if hasOutcome {
		record.Success = outcome
	}

	return record, hasOutcome
}

// toFloat normalizes the numeric types a decoded JSON row can carry.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
