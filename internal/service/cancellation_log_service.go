// FILE: internal/service/cancellation_log_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"order-cancellation-be/internal/model"
	"order-cancellation-be/internal/pkg/logger"
	"order-cancellation-be/pkg/axiom"
	"order-cancellation-be/pkg/eventbus"
	"order-cancellation-be/pkg/events"
)

const (
	defaultListLimit = 100
	statsRecordCap   = 1000
)

// LogBackend is the slice of the axiom client this service consumes.
// *axiom.Client satisfies it; tests substitute a mock.
type LogBackend interface {
	Ingest(ctx context.Context, events []axiom.Event) *axiom.IngestStatus
	Query(ctx context.Context, apl string, startTime, endTime time.Time, cursor string) (*axiom.QueryResult, error)
	Dataset() string
}

type ICancellationLogService interface {
	// RecordAttempt ships one attempt record to the log backend. It reports
	// whether the record was actually ingested and never returns an error:
	// a broken log pipeline must not disturb cancellation processing.
	RecordAttempt(ctx context.Context, record *model.CancellationAttemptRecord) bool

	// ListSuccessful and ListFailed return attempt records in the window,
	// newest first. Both fetch the same outcome-blind page of up to limit
	// raw rows and filter afterwards, so the result can undershoot the
	// limit even when more matching rows exist further back.
	ListSuccessful(ctx context.Context, start, end time.Time, limit int) ([]*model.CancellationAttemptRecord, error)
	ListFailed(ctx context.Context, start, end time.Time, limit int) ([]*model.CancellationAttemptRecord, error)

	// ComputeStatistics aggregates up to 1000 raw records in the window.
	// Unlike RecordAttempt it surfaces query failures: callers must be able
	// to tell "no attempts" from "backend down".
	ComputeStatistics(ctx context.Context, start, end time.Time) (*model.CancellationStatistics, error)
}

type cancellationLogService struct {
	backend LogBackend
	bus     *eventbus.Bus
	logger  logger.ILogger
}

func NewCancellationLogService(backend LogBackend, bus *eventbus.Bus, log logger.ILogger) ICancellationLogService {
	return &cancellationLogService{
		backend: backend,
		bus:     bus,
		logger:  log,
	}
}

func (s *cancellationLogService) RecordAttempt(ctx context.Context, record *model.CancellationAttemptRecord) bool {
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	status := s.backend.Ingest(ctx, []axiom.Event{record.ToEvent()})
	if status.Ingested == 0 {
		details := map[string]interface{}{
			"order_id": record.OrderId,
			"failed":   status.Failed,
		}
		if len(status.Failures) > 0 {
			details["error"] = status.Failures[0].Error
		}
		s.logger.Warn("CancellationLogService", "Attempt record was not ingested", details)
		return false
	}

	s.publishAttemptRecorded(record)
	return true
}

func (s *cancellationLogService) ListSuccessful(ctx context.Context, start, end time.Time, limit int) ([]*model.CancellationAttemptRecord, error) {
	return s.listByOutcome(ctx, start, end, limit, true)
}

func (s *cancellationLogService) ListFailed(ctx context.Context, start, end time.Time, limit int) ([]*model.CancellationAttemptRecord, error) {
	return s.listByOutcome(ctx, start, end, limit, false)
}

func (s *cancellationLogService) ComputeStatistics(ctx context.Context, start, end time.Time) (*model.CancellationStatistics, error) {
	matches, err := s.queryAll(ctx, s.rangeQuery(start, end), start, end, statsRecordCap)
	if err != nil {
		return nil, fmt.Errorf("compute cancellation statistics: %w", err)
	}

	stats := &model.CancellationStatistics{
		StartDate: start,
		EndDate:   end,
	}

	var amountSum, feeSum float64
	reasonCounts := make(map[string]int)
	var reasonOrder []string

	for _, m := range matches {
		record, hasOutcome := model.AttemptRecordFromMatch(m.Data)

		// Rows without a boolean outcome still count as attempts but land
		// in neither bucket.
		stats.TotalAttempts++
		amountSum += record.Amount
		if !hasOutcome {
			continue
		}

		if record.Success {
			stats.SuccessfulCancellations++
			if record.Fee != nil {
				feeSum += *record.Fee
			}
		} else {
			stats.FailedCancellations++
			if record.FailureReason != nil {
				reason := *record.FailureReason
				if reasonCounts[reason] == 0 {
					reasonOrder = append(reasonOrder, reason)
				}
				reasonCounts[reason]++
			}
		}
	}

	if stats.TotalAttempts > 0 {
		stats.SuccessRate = float64(stats.SuccessfulCancellations) / float64(stats.TotalAttempts)
		stats.AverageOrderAmount = amountSum / float64(stats.TotalAttempts)
	}
	stats.TotalFeesCollected = feeSum
	if stats.SuccessfulCancellations > 0 {
		stats.AverageFee = feeSum / float64(stats.SuccessfulCancellations)
	}

	// Mode of failure reasons; ties keep the reason seen first.
	best := 0
	for _, reason := range reasonOrder {
		if reasonCounts[reason] > best {
			best = reasonCounts[reason]
			stats.TopFailureReason = reason
		}
	}

	return stats, nil
}

func (s *cancellationLogService) listByOutcome(ctx context.Context, start, end time.Time, limit int, wantSuccess bool) ([]*model.CancellationAttemptRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	matches, err := s.queryAll(ctx, s.rangeQuery(start, end), start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("list cancellation attempts: %w", err)
	}

	records := make([]*model.CancellationAttemptRecord, 0, len(matches))
	for _, m := range matches {
		record, hasOutcome := model.AttemptRecordFromMatch(m.Data)
		if !hasOutcome || record.Success != wantSuccess {
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

// queryAll pages through query results, following cursors until the backend
// stops returning one, a page comes back empty, or limit rows are collected.
func (s *cancellationLogService) queryAll(ctx context.Context, apl string, start, end time.Time, limit int) ([]*axiom.QueryMatch, error) {
	var matches []*axiom.QueryMatch
	cursor := ""

	for {
		page, err := s.backend.Query(ctx, apl, start, end, cursor)
		if err != nil {
			return nil, err
		}

		matches = append(matches, page.Matches...)
		// An empty page ends the walk even when a cursor rides along;
		// the backend is not trusted to terminate the cursor chain.
		if page.Cursor == "" || len(page.Matches) == 0 || len(matches) >= limit {
			break
		}
		cursor = page.Cursor
	}

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *cancellationLogService) rangeQuery(start, end time.Time) string {
	return fmt.Sprintf(
		"['%s'] | where %s >= datetime(%s) and %s <= datetime(%s) | sort by %s desc",
		s.backend.Dataset(),
		model.FieldTime, start.UTC().Format(time.RFC3339Nano),
		model.FieldTime, end.UTC().Format(time.RFC3339Nano),
		model.FieldTime,
	)
}

func (s *cancellationLogService) publishAttemptRecorded(record *model.CancellationAttemptRecord) {
	if s.bus == nil {
		return
	}

	payload := map[string]interface{}{
		model.FieldOrderId: record.OrderId,
		model.FieldSuccess: record.Success,
	}
	if record.Success && record.Fee != nil {
		payload[model.FieldFee] = *record.Fee
	}
	if !record.Success && record.FailureReason != nil {
		payload[model.FieldFailureReason] = *record.FailureReason
	}

	event := events.BaseEvent{
		Type:       events.TypeAttemptRecorded,
		Data:       payload,
		OccurredAt: record.Timestamp,
	}
	if err := s.bus.Publish(event); err != nil {
		s.logger.Warn("CancellationLogService", "Failed to publish attempt event", map[string]interface{}{"error": err.Error()})
	}
}
