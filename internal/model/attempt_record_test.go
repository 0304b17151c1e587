package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToEvent(t *testing.T) {
	fee := 12.5
	reason := FailureReasonAmountAboveLimit
	ts := time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC)

	t.Run("successful attempt carries the fee only", func(t *testing.T) {
		r := &CancellationAttemptRecord{
			OrderId:   "order-1",
			Amount:    125,
			Success:   true,
			Message:   "Order canceled successfully",
			Fee:       &fee,
			ClientIP:  "203.0.113.7",
			UserAgent: "probe/1.0",
			Timestamp: ts,
		}

		event := r.ToEvent()
		assert.Equal(t, "order-1", event[FieldOrderId])
		assert.Equal(t, 125.0, event[FieldAmount])
		assert.Equal(t, true, event[FieldSuccess])
		assert.Equal(t, 12.5, event[FieldFee])
		assert.Equal(t, "2026-08-20T10:30:00Z", event[FieldTime])
		assert.Equal(t, "203.0.113.7", event[FieldClientIP])
		assert.NotContains(t, event, FieldFailureReason)
	})

	t.Run("failed attempt carries the reason only", func(t *testing.T) {
		r := &CancellationAttemptRecord{
			OrderId:       "order-2",
			Amount:        1800,
			Success:       false,
			Message:       "Order cannot be canceled",
			FailureReason: &reason,
			Timestamp:     ts,
		}

		event := r.ToEvent()
		assert.Equal(t, false, event[FieldSuccess])
		assert.Equal(t, FailureReasonAmountAboveLimit, event[FieldFailureReason])
		assert.NotContains(t, event, FieldFee)
	})

	t.Run("fields inconsistent with the outcome are dropped", func(t *testing.T) {
		r := &CancellationAttemptRecord{
			OrderId:       "order-3",
			Success:       true,
			Fee:           &fee,
			FailureReason: &reason,
		}
		event := r.ToEvent()
		assert.Contains(t, event, FieldFee)
		assert.NotContains(t, event, FieldFailureReason)

		r.Success = false
		event = r.ToEvent()
		assert.NotContains(t, event, FieldFee)
		assert.Contains(t, event, FieldFailureReason)
	})

	t.Run("zero timestamp and empty client details are omitted", func(t *testing.T) {
		r := &CancellationAttemptRecord{OrderId: "order-4", Success: true}
		event := r.ToEvent()
		assert.NotContains(t, event, FieldTime)
		assert.NotContains(t, event, FieldClientIP)
		assert.NotContains(t, event, FieldUserAgent)
	})

	t.Run("non-UTC timestamps are normalized", func(t *testing.T) {
		loc := time.FixedZone("UTC+7", 7*3600)
		r := &CancellationAttemptRecord{
			OrderId:   "order-5",
			Success:   true,
			Timestamp: time.Date(2026, 8, 20, 17, 30, 0, 0, loc),
		}
		event := r.ToEvent()
		assert.Equal(t, "2026-08-20T10:30:00Z", event[FieldTime])
	})
}

func TestAttemptRecordFromMatch(t *testing.T) {
	t.Run("rebuilds a full success row", func(t *testing.T) {
		record, hasOutcome := AttemptRecordFromMatch(map[string]interface{}{
			FieldOrderId:     "order-1",
			FieldAmount:      125.0,
			FieldOrderStatus: "CANCELED",
			FieldSuccess:     true,
			FieldMessage:     "Order canceled successfully",
			FieldFee:         12.5,
			FieldClientIP:    "203.0.113.7",
			FieldUserAgent:   "probe/1.0",
			FieldTime:        "2026-08-20T10:30:00Z",
		})

		assert.True(t, hasOutcome)
		assert.Equal(t, "order-1", record.OrderId)
		assert.Equal(t, 125.0, record.Amount)
		assert.Equal(t, OrderStatusCanceled, record.OrderStatus)
		assert.True(t, record.Success)
		require.NotNil(t, record.Fee)
		assert.Equal(t, 12.5, *record.Fee)
		assert.Nil(t, record.FailureReason)
		assert.Equal(t, time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC), record.Timestamp.UTC())
	})

	t.Run("row without a success flag has no outcome", func(t *testing.T) {
		record, hasOutcome := AttemptRecordFromMatch(map[string]interface{}{
			FieldOrderId: "legacy-1",
			FieldAmount:  50.0,
		})

		assert.False(t, hasOutcome)
		assert.Equal(t, "legacy-1", record.OrderId)
		assert.False(t, record.Success)
	})

	t.Run("non-boolean success values are not an outcome", func(t *testing.T) {
		_, hasOutcome := AttemptRecordFromMatch(map[string]interface{}{
			FieldSuccess: "true",
		})
		assert.False(t, hasOutcome)
	})

	t.Run("integer amounts decode", func(t *testing.T) {
		record, _ := AttemptRecordFromMatch(map[string]interface{}{
			FieldAmount:  200,
			FieldSuccess: true,
		})
		assert.Equal(t, 200.0, record.Amount)
	})

	t.Run("empty failure reason stays nil", func(t *testing.T) {
		record, hasOutcome := AttemptRecordFromMatch(map[string]interface{}{
			FieldSuccess:       false,
			FieldFailureReason: "",
		})
		assert.True(t, hasOutcome)
		assert.Nil(t, record.FailureReason)
	})

	t.Run("unparseable timestamps are ignored", func(t *testing.T) {
		record, _ := AttemptRecordFromMatch(map[string]interface{}{
			FieldSuccess: true,
			FieldTime:    "last tuesday",
		})
		assert.True(t, record.Timestamp.IsZero())
	})
}

func TestOrderIsCanceled(t *testing.T) {
	assert.False(t, (&Order{Status: OrderStatusPending}).IsCanceled())
	assert.True(t, (&Order{Status: OrderStatusCanceled}).IsCanceled())
}
