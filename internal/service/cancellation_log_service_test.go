// FILE: internal/service/cancellation_log_service_test.go
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"order-cancellation-be/internal/model"
	"order-cancellation-be/internal/pkg/logger"
	"order-cancellation-be/pkg/axiom"
	"order-cancellation-be/pkg/eventbus"
	"order-cancellation-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockBackend struct {
	ingestFunc func(ctx context.Context, evts []axiom.Event) *axiom.IngestStatus
	queryFunc  func(ctx context.Context, apl string, start, end time.Time, cursor string) (*axiom.QueryResult, error)
}

func (m *mockBackend) Ingest(ctx context.Context, evts []axiom.Event) *axiom.IngestStatus {
	if m.ingestFunc != nil {
		return m.ingestFunc(ctx, evts)
	}
	return &axiom.IngestStatus{Ingested: int64(len(evts))}
}

func (m *mockBackend) Query(ctx context.Context, apl string, start, end time.Time, cursor string) (*axiom.QueryResult, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, apl, start, end, cursor)
	}
	return &axiom.QueryResult{}, nil
}

func (m *mockBackend) Dataset() string {
	return "cancellation-logs"
}

func successMatch(orderId string, amount, fee float64, ts time.Time) *axiom.QueryMatch {
	return &axiom.QueryMatch{
		Time: ts,
		Data: map[string]interface{}{
			model.FieldTime:        ts.UTC().Format(time.RFC3339Nano),
			model.FieldOrderId:     orderId,
			model.FieldAmount:      amount,
			model.FieldOrderStatus: string(model.OrderStatusCanceled),
			model.FieldSuccess:     true,
			model.FieldMessage:     "Order canceled successfully",
			model.FieldFee:         fee,
		},
	}
}

func failureMatch(orderId string, amount float64, reason string, ts time.Time) *axiom.QueryMatch {
	return &axiom.QueryMatch{
		Time: ts,
		Data: map[string]interface{}{
			model.FieldTime:          ts.UTC().Format(time.RFC3339Nano),
			model.FieldOrderId:       orderId,
			model.FieldAmount:        amount,
			model.FieldOrderStatus:   string(model.OrderStatusPending),
			model.FieldSuccess:       false,
			model.FieldMessage:       "Order cannot be canceled",
			model.FieldFailureReason: reason,
		},
	}
}

func TestRecordAttempt(t *testing.T) {
	ctx := context.Background()

	t.Run("stamps missing timestamp and ingests", func(t *testing.T) {
		var captured []axiom.Event
		backend := &mockBackend{
			ingestFunc: func(ctx context.Context, evts []axiom.Event) *axiom.IngestStatus {
				captured = evts
				return &axiom.IngestStatus{Ingested: int64(len(evts))}
			},
		}
		svc := NewCancellationLogService(backend, nil, logger.NewNopLogger())

		fee := 10.0
		record := &model.CancellationAttemptRecord{
			OrderId:     "ord-1",
			Amount:      100,
			OrderStatus: model.OrderStatusCanceled,
			Success:     true,
			Message:     "Order canceled successfully",
			Fee:         &fee,
		}

		ok := svc.RecordAttempt(ctx, record)

		assert.True(t, ok)
		assert.False(t, record.Timestamp.IsZero())
		require.Len(t, captured, 1)
		assert.Contains(t, captured[0], model.FieldTime)
		assert.Equal(t, true, captured[0][model.FieldSuccess])
		assert.Equal(t, 10.0, captured[0][model.FieldFee])
		assert.NotContains(t, captured[0], model.FieldFailureReason)
	})

	t.Run("preserves explicit timestamp", func(t *testing.T) {
		var captured []axiom.Event
		backend := &mockBackend{
			ingestFunc: func(ctx context.Context, evts []axiom.Event) *axiom.IngestStatus {
				captured = evts
				return &axiom.IngestStatus{Ingested: 1}
			},
		}
		svc := NewCancellationLogService(backend, nil, logger.NewNopLogger())

		ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		record := &model.CancellationAttemptRecord{
			OrderId:   "ord-2",
			Success:   true,
			Timestamp: ts,
		}

		svc.RecordAttempt(ctx, record)

		assert.Equal(t, ts, record.Timestamp)
		require.Len(t, captured, 1)
		assert.Equal(t, ts.Format(time.RFC3339Nano), captured[0][model.FieldTime])
	})

	t.Run("reports false when nothing ingested, without error", func(t *testing.T) {
		backend := &mockBackend{
			ingestFunc: func(ctx context.Context, evts []axiom.Event) *axiom.IngestStatus {
				return &axiom.IngestStatus{
					Failed:   1,
					Failures: []*axiom.IngestFailure{{Timestamp: time.Now(), Error: "connection refused"}},
				}
			},
		}
		svc := NewCancellationLogService(backend, nil, logger.NewNopLogger())

		ok := svc.RecordAttempt(ctx, &model.CancellationAttemptRecord{OrderId: "ord-3"})

		assert.False(t, ok)
	})

	t.Run("publishes attempt event on the bus", func(t *testing.T) {
		bus := eventbus.New()
		defer bus.Close()

		subCtx, cancel := context.WithCancel(context.Background())
		defer cancel()

		msgs, err := bus.Subscribe(subCtx, events.TypeAttemptRecorded)
		require.NoError(t, err)

		svc := NewCancellationLogService(&mockBackend{}, bus, logger.NewNopLogger())

		reason := model.FailureReasonAmountAboveLimit
		svc.RecordAttempt(ctx, &model.CancellationAttemptRecord{
			OrderId:       "ord-4",
			Amount:        1500,
			Success:       false,
			FailureReason: &reason,
		})

		select {
		case msg := <-msgs:
			var env eventbus.Envelope
			require.NoError(t, json.Unmarshal(msg.Payload, &env))
			msg.Ack()

			assert.Equal(t, events.TypeAttemptRecorded, env.Type)
			assert.Equal(t, "ord-4", env.Data[model.FieldOrderId])
			assert.Equal(t, false, env.Data[model.FieldSuccess])
			assert.Equal(t, model.FailureReasonAmountAboveLimit, env.Data[model.FieldFailureReason])
		case <-time.After(2 * time.Second):
			t.Fatal("no attempt event received")
		}
	})
}

func TestListByOutcome(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	t.Run("filters client-side on outcome", func(t *testing.T) {
		backend := &mockBackend{
			queryFunc: func(ctx context.Context, apl string, qs, qe time.Time, cursor string) (*axiom.QueryResult, error) {
				return &axiom.QueryResult{Matches: []*axiom.QueryMatch{
					successMatch("a", 100, 10, start.Add(time.Hour)),
					failureMatch("b", 1500, model.FailureReasonAmountAboveLimit, start.Add(2*time.Hour)),
					successMatch("c", 200, 20, start.Add(3*time.Hour)),
					failureMatch("d", 2000, model.FailureReasonAmountAboveLimit, start.Add(4*time.Hour)),
					successMatch("e", 300, 30, start.Add(5*time.Hour)),
				}}, nil
			},
		}
		svc := NewCancellationLogService(backend, nil, logger.NewNopLogger())

		successful, err := svc.ListSuccessful(ctx, start, end, 10)
		require.NoError(t, err)
		assert.Len(t, successful, 3)
		for _, r := range successful {
			assert.True(t, r.Success)
			assert.NotNil(t, r.Fee)
		}

		failed, err := svc.ListFailed(ctx, start, end, 10)
		require.NoError(t, err)
		assert.Len(t, failed, 2)
		for _, r := range failed {
			assert.False(t, r.Success)
			assert.NotNil(t, r.FailureReason)
		}
	})

	t.Run("can under-return when the raw page is dominated by the other outcome", func(t *testing.T) {
		calls := 0
		backend := &mockBackend{
			queryFunc: func(ctx context.Context, apl string, qs, qe time.Time, cursor string) (*axiom.QueryResult, error) {
				calls++
				// More successes exist past this page, but the raw fetch
				// stops at the limit before filtering.
				return &axiom.QueryResult{
					Matches: []*axiom.QueryMatch{
						failureMatch("f1", 1500, model.FailureReasonAmountAboveLimit, start.Add(time.Hour)),
						failureMatch("f2", 1600, model.FailureReasonAmountAboveLimit, start.Add(2*time.Hour)),
					},
					Cursor: "more",
				}, nil
			},
		}
		svc := NewCancellationLogService(backend, nil, logger.NewNopLogger())

		successful, err := svc.ListSuccessful(ctx, start, end, 2)
		require.NoError(t, err)
		assert.Empty(t, successful)
		assert.Equal(t, 1, calls)
	})

	t.Run("non-positive limit defaults to 100", func(t *testing.T) {
		calls := 0
		backend := &mockBackend{
			queryFunc: func(ctx context.Context, apl string, qs, qe time.Time, cursor string) (*axiom.QueryResult, error) {
				calls++
				matches := make([]*axiom.QueryMatch, 60)
				for i := range matches {
					matches[i] = successMatch(fmt.Sprintf("p%d-%d", calls, i), 100, 10, start.Add(time.Duration(i)*time.Minute))
				}
				return &axiom.QueryResult{Matches: matches, Cursor: fmt.Sprintf("c%d", calls)}, nil
			},
		}
		svc := NewCancellationLogService(backend, nil, logger.NewNopLogger())

		successful, err := svc.ListSuccessful(ctx, start, end, 0)
		require.NoError(t, err)
		assert.Len(t, successful, 100)
		assert.Equal(t, 2, calls)
	})

	t.Run("query failure propagates", func(t *testing.T) {
		backend := &mockBackend{
			queryFunc: func(ctx context.Context, apl string, qs, qe time.Time, cursor string) (*axiom.QueryResult, error) {
				return nil, errors.New("status 500")
			},
		}
		svc := NewCancellationLogService(backend, nil, logger.NewNopLogger())

		_, err := svc.ListFailed(ctx, start, end, 10)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "list cancellation attempts")
	})

	t.Run("skips rows without a boolean outcome", func(t *testing.T) {
		backend := &mockBackend{
			queryFunc: func(ctx context.Context, apl string, qs, qe time.Time, cursor string) (*axiom.QueryResult, error) {
				return &axiom.QueryResult{Matches: []*axiom.QueryMatch{
					successMatch("a", 100, 10, start.Add(time.Hour)),
					{Time: start.Add(2 * time.Hour), Data: map[string]interface{}{
						model.FieldOrderId: "legacy",
						model.FieldAmount:  50.0,
					}},
				}}, nil
			},
		}
		svc := NewCancellationLogService(backend, nil, logger.NewNopLogger())

		successful, err := svc.ListSuccessful(ctx, start, end, 10)
		require.NoError(t, err)
		assert.Len(t, successful, 1)

		failed, err := svc.ListFailed(ctx, start, end, 10)
		require.NoError(t, err)
		assert.Empty(t, failed)
	})
}

func TestComputeStatistics(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(7 * 24 * time.Hour)

	fixture := []*axiom.QueryMatch{
		successMatch("s1", 100, 10, start.Add(1*time.Hour)),
		successMatch("s2", 200, 20, start.Add(2*time.Hour)),
		successMatch("s3", 300, 30, start.Add(3*time.Hour)),
		successMatch("s4", 400, 40, start.Add(4*time.Hour)),
		failureMatch("f1", 1500, model.FailureReasonAmountAboveLimit, start.Add(5*time.Hour)),
		failureMatch("f2", 2000, model.FailureReasonAmountAboveLimit, start.Add(6*time.Hour)),
		failureMatch("f3", 1200, model.FailureReasonAlreadyCanceled, start.Add(7*time.Hour)),
		// Legacy row: no boolean outcome, counts as an attempt only.
		{Time: start.Add(8 * time.Hour), Data: map[string]interface{}{
			model.FieldOrderId: "legacy",
			model.FieldAmount:  50.0,
		}},
	}

	fixtureBackend := func() *mockBackend {
		return &mockBackend{
			queryFunc: func(ctx context.Context, apl string, qs, qe time.Time, cursor string) (*axiom.QueryResult, error) {
				return &axiom.QueryResult{Matches: fixture}, nil
			},
		}
	}

	t.Run("aggregates with outcome asymmetry", func(t *testing.T) {
		svc := NewCancellationLogService(fixtureBackend(), nil, logger.NewNopLogger())

		stats, err := svc.ComputeStatistics(ctx, start, end)
		require.NoError(t, err)

		assert.Equal(t, 8, stats.TotalAttempts)
		assert.Equal(t, 4, stats.SuccessfulCancellations)
		assert.Equal(t, 3, stats.FailedCancellations)
		assert.InDelta(t, 0.5, stats.SuccessRate, 1e-9)
		assert.InDelta(t, 100.0, stats.TotalFeesCollected, 1e-9)
		assert.InDelta(t, 25.0, stats.AverageFee, 1e-9)
		assert.InDelta(t, 718.75, stats.AverageOrderAmount, 1e-9)
		assert.Equal(t, model.FailureReasonAmountAboveLimit, stats.TopFailureReason)
		assert.Equal(t, start, stats.StartDate)
		assert.Equal(t, end, stats.EndDate)
	})

	t.Run("idempotent over a fixed window", func(t *testing.T) {
		svc := NewCancellationLogService(fixtureBackend(), nil, logger.NewNopLogger())

		first, err := svc.ComputeStatistics(ctx, start, end)
		require.NoError(t, err)
		second, err := svc.ComputeStatistics(ctx, start, end)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("empty window yields zeros", func(t *testing.T) {
		svc := NewCancellationLogService(&mockBackend{}, nil, logger.NewNopLogger())

		stats, err := svc.ComputeStatistics(ctx, start, end)
		require.NoError(t, err)

		assert.Zero(t, stats.TotalAttempts)
		assert.Zero(t, stats.SuccessRate)
		assert.Zero(t, stats.AverageFee)
		assert.Zero(t, stats.AverageOrderAmount)
		assert.Empty(t, stats.TopFailureReason)
	})

	t.Run("failure reason ties keep the first seen", func(t *testing.T) {
		backend := &mockBackend{
			queryFunc: func(ctx context.Context, apl string, qs, qe time.Time, cursor string) (*axiom.QueryResult, error) {
				return &axiom.QueryResult{Matches: []*axiom.QueryMatch{
					failureMatch("f1", 1500, model.FailureReasonAmountAboveLimit, start.Add(1*time.Hour)),
					failureMatch("f2", 1200, model.FailureReasonAlreadyCanceled, start.Add(2*time.Hour)),
					failureMatch("f3", 1600, model.FailureReasonAmountAboveLimit, start.Add(3*time.Hour)),
					failureMatch("f4", 1300, model.FailureReasonAlreadyCanceled, start.Add(4*time.Hour)),
				}}, nil
			},
		}
		svc := NewCancellationLogService(backend, nil, logger.NewNopLogger())

		stats, err := svc.ComputeStatistics(ctx, start, end)
		require.NoError(t, err)
		assert.Equal(t, model.FailureReasonAmountAboveLimit, stats.TopFailureReason)
	})

	t.Run("query failure wraps with context", func(t *testing.T) {
		backendErr := errors.New("status 502")
		backend := &mockBackend{
			queryFunc: func(ctx context.Context, apl string, qs, qe time.Time, cursor string) (*axiom.QueryResult, error) {
				return nil, backendErr
			},
		}
		svc := NewCancellationLogService(backend, nil, logger.NewNopLogger())

		_, err := svc.ComputeStatistics(ctx, start, end)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "compute cancellation statistics")
		assert.ErrorIs(t, err, backendErr)
	})
}

func TestQueryPagination(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	t.Run("follows cursors until exhausted", func(t *testing.T) {
		var cursors []string
		pages := map[string]*axiom.QueryResult{
			"": {Matches: []*axiom.QueryMatch{
				successMatch("a", 100, 10, start.Add(1*time.Hour)),
				successMatch("b", 100, 10, start.Add(2*time.Hour)),
			}, Cursor: "c1"},
			"c1": {Matches: []*axiom.QueryMatch{
				successMatch("c", 100, 10, start.Add(3*time.Hour)),
				successMatch("d", 100, 10, start.Add(4*time.Hour)),
			}, Cursor: "c2"},
			"c2": {Matches: []*axiom.QueryMatch{
				successMatch("e", 100, 10, start.Add(5*time.Hour)),
			}},
		}
		backend := &mockBackend{
			queryFunc: func(ctx context.Context, apl string, qs, qe time.Time, cursor string) (*axiom.QueryResult, error) {
				cursors = append(cursors, cursor)
				return pages[cursor], nil
			},
		}
		svc := NewCancellationLogService(backend, nil, logger.NewNopLogger())

		records, err := svc.ListSuccessful(ctx, start, end, 10)
		require.NoError(t, err)
		assert.Len(t, records, 5)
		assert.Equal(t, []string{"", "c1", "c2"}, cursors)
	})

	t.Run("truncates to exactly the limit", func(t *testing.T) {
		calls := 0
		backend := &mockBackend{
			queryFunc: func(ctx context.Context, apl string, qs, qe time.Time, cursor string) (*axiom.QueryResult, error) {
				calls++
				return &axiom.QueryResult{
					Matches: []*axiom.QueryMatch{
						successMatch(fmt.Sprintf("a%d", calls), 100, 10, start.Add(time.Duration(calls)*time.Hour)),
						successMatch(fmt.Sprintf("b%d", calls), 100, 10, start.Add(time.Duration(calls)*time.Hour)),
					},
					Cursor: fmt.Sprintf("c%d", calls),
				}, nil
			},
		}
		svc := NewCancellationLogService(backend, nil, logger.NewNopLogger())

		records, err := svc.ListSuccessful(ctx, start, end, 3)
		require.NoError(t, err)
		assert.Len(t, records, 3)
		assert.Equal(t, 2, calls)
	})

	t.Run("an empty page ends the walk even with a cursor", func(t *testing.T) {
		calls := 0
		backend := &mockBackend{
			queryFunc: func(ctx context.Context, apl string, qs, qe time.Time, cursor string) (*axiom.QueryResult, error) {
				calls++
				if calls == 1 {
					return &axiom.QueryResult{
						Matches: []*axiom.QueryMatch{
							successMatch("a", 100, 10, start.Add(1*time.Hour)),
							successMatch("b", 100, 10, start.Add(2*time.Hour)),
						},
						Cursor: "c1",
					}, nil
				}
				// No rows, yet the cursor is echoed back on every page.
				return &axiom.QueryResult{Cursor: "c1"}, nil
			},
		}
		svc := NewCancellationLogService(backend, nil, logger.NewNopLogger())

		records, err := svc.ListSuccessful(ctx, start, end, 10)
		require.NoError(t, err)
		assert.Len(t, records, 2)
		assert.Equal(t, 2, calls)
	})
}
