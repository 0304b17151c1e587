// FILE: internal/service/cancellation_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"order-cancellation-be/internal/model"
)

const (
	// Orders above this total cannot be canceled through this service.
	cancellationLimit = 1000.0
	// Cancellation fee as a fraction of the order total.
	cancellationFeeRate = 0.10

	recordTimeout = 5 * time.Second
)

type ICancellationService interface {
	// CanCancel reports eligibility from the order total alone. The limit
	// is inclusive: exactly 1000.00 is still eligible.
	CanCancel(totalAmount float64) bool

	// Cancel applies the cancellation rule and returns the outcome
	// immediately. Recording the attempt happens in the background and
	// never delays or fails the response.
	Cancel(ctx context.Context, order *model.Order, clientIP, userAgent string) *model.CancellationResult
}

type cancellationService struct {
	logService ICancellationLogService
}

// NewCancellationService builds the domain service. logService may be nil;
// attempts are then simply not recorded.
func NewCancellationService(logService ICancellationLogService) ICancellationService {
	return &cancellationService{
		logService: logService,
	}
}

func (s *cancellationService) CanCancel(totalAmount float64) bool {
	return totalAmount <= cancellationLimit
}

func (s *cancellationService) Cancel(ctx context.Context, order *model.Order, clientIP, userAgent string) *model.CancellationResult {
	result := s.decide(order)

	if s.logService != nil {
		record := buildAttemptRecord(order, result, clientIP, userAgent)
		go func() {
			// Detached from the request context: the response must not
			// wait on the log write, and the write must survive the
			// request ending.
			logCtx, cancel := context.WithTimeout(context.Background(), recordTimeout)
			defer cancel()
			s.logService.RecordAttempt(logCtx, record)
		}()
	}

	return result
}

// decide applies the cancellation rule. The already-canceled check runs
// before the amount check, so an oversized canceled order reports
// "already cancelled", not "amount above limit".
func (s *cancellationService) decide(order *model.Order) *model.CancellationResult {
	if order.IsCanceled() {
		return &model.CancellationResult{
			Success:       false,
			Message:       "Order is already canceled",
			FailureReason: model.FailureReasonAlreadyCanceled,
		}
	}

	if !s.CanCancel(order.TotalAmount) {
		return &model.CancellationResult{
			Success:       false,
			Message:       fmt.Sprintf("Order cannot be canceled: total amount %.2f exceeds the %.0f limit", order.TotalAmount, cancellationLimit),
			FailureReason: model.FailureReasonAmountAboveLimit,
		}
	}

	fee := order.TotalAmount * cancellationFeeRate
	order.Status = model.OrderStatusCanceled

	return &model.CancellationResult{
		Success: true,
		Message: "Order canceled successfully",
		Fee:     &fee,
		Order:   order,
	}
}

// buildAttemptRecord snapshots the attempt before the goroutine runs so the
// record is immune to later mutation. Timestamp stays zero: the log service
// stamps ingestion time for records that arrive without one.
func buildAttemptRecord(order *model.Order, result *model.CancellationResult, clientIP, userAgent string) *model.CancellationAttemptRecord {
	record := &model.CancellationAttemptRecord{
		OrderId:     order.Id,
		Amount:      order.TotalAmount,
		OrderStatus: order.Status,
		Success:     result.Success,
		Message:     result.Message,
		ClientIP:    clientIP,
		UserAgent:   userAgent,
	}

	if result.Success {
		record.Fee = result.Fee
	} else if result.FailureReason != "" {
		reason := result.FailureReason
		record.FailureReason = &reason
	}

	return record
}
