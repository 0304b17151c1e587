// FILE: internal/quality/checker.go
// Package quality runs a periodic end-to-end probe of the cancellation
// pipeline: it exercises the public HTTP surface with synthetic orders and
// cross-checks the records the log backend hands back.
package quality

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"order-cancellation-be/internal/model"
	"order-cancellation-be/internal/monitor"
	"order-cancellation-be/internal/pkg/logger"
	"order-cancellation-be/internal/pkg/mailer"
	"order-cancellation-be/internal/service"
	"order-cancellation-be/pkg/eventbus"
	"order-cancellation-be/pkg/events"

	"github.com/google/uuid"
)

const (
	defaultInterval = 5 * time.Minute
	httpTimeout     = 10 * time.Second

	// Synthetic order totals: one safely below the cancellation limit,
	// one safely above.
	probeBelowLimitAmount = 100.0
	probeAboveLimitAmount = 1500.0
)

// StepResult is the outcome of one probe step.
type StepResult struct {
	Name     string        `json:"name"`
	Passed   bool          `json:"passed"`
	Detail   string        `json:"detail,omitempty"`
	Duration time.Duration `json:"duration"`
}

// CycleReport is the outcome of one full probe cycle. A failing step aborts
// the cycle, so Steps holds every step up to and including the failure.
type CycleReport struct {
	StartedAt  time.Time     `json:"startedAt"`
	Steps      []StepResult  `json:"steps"`
	Passed     bool          `json:"passed"`
	FailedStep string        `json:"failedStep,omitempty"`
	Duration   time.Duration `json:"duration"`
}

type Checker struct {
	targetBaseURL string
	logService    service.ICancellationLogService
	bus           *eventbus.Bus
	logger        logger.ILogger
	mailer        mailer.IAlertMailer
	interval      time.Duration
	clock         monitor.Clock
	httpClient    *http.Client

	mu      sync.Mutex
	running bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// New builds a checker probing the HTTP surface at targetBaseURL. The logger
// should be an isolated one so cycle reports stay out of the main log. bus
// and alertMailer may be nil; clock nil defaults to the real clock.
func New(targetBaseURL string, logService service.ICancellationLogService, bus *eventbus.Bus, log logger.ILogger, alertMailer mailer.IAlertMailer, interval time.Duration, clock monitor.Clock) *Checker {
	if clock == nil {
		clock = monitor.RealClock()
	}
	if interval <= 0 {
		interval = defaultInterval
	}

	return &Checker{
		targetBaseURL: strings.TrimRight(targetBaseURL, "/"),
		logService:    logService,
		bus:           bus,
		logger:        log,
		mailer:        alertMailer,
		interval:      interval,
		clock:         clock,
		httpClient:    &http.Client{Timeout: httpTimeout},
	}
}

// Start schedules one cycle per interval. The first cycle runs after one
// full interval so the HTTP surface has time to come up. Idempotent.
func (c *Checker) Start() {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	c.logger.Info("QualityChecker", "Starting quality checker", map[string]interface{}{
		"interval": c.interval.String(),
		"target":   c.targetBaseURL,
	})

	c.wg.Add(1)
	go c.run(done)
}

// Stop cancels the schedule and waits for the loop to exit. Idempotent.
func (c *Checker) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.done)
	c.mu.Unlock()

	c.wg.Wait()
	c.logger.Info("QualityChecker", "Quality checker stopped", nil)
}

func (c *Checker) run(done chan struct{}) {
	defer c.wg.Done()

	ticker := c.clock.Ticker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.Chan():
			c.RunCycle(context.Background())
		}
	}
}

// RunCycle executes the probe steps in order, aborting on the first failure.
// It never panics out: a panicking step is reported as a failed cycle, and
// the scheduler keeps running regardless of the outcome.
func (c *Checker) RunCycle(ctx context.Context) (report *CycleReport) {
	started := c.clock.Now().UTC()
	report = &CycleReport{StartedAt: started, Passed: true}

	defer func() {
		if r := recover(); r != nil {
			report.Passed = false
			report.FailedStep = "panic"
			report.Steps = append(report.Steps, StepResult{
				Name:   "panic",
				Detail: fmt.Sprintf("cycle panicked: %v", r),
			})
		}
		report.Duration = c.clock.Now().UTC().Sub(started)
		c.reportCycle(report)
	}()

	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"axiom health", c.checkHealthEndpoint},
		{"cancel below limit", c.checkCancelBelowLimit},
		{"cancel above limit", c.checkCancelAboveLimit},
		{"recent success fields", c.checkRecentSuccessFields},
		{"statistics consistency", c.checkStatisticsConsistency},
	}

	for _, step := range steps {
		stepStart := c.clock.Now()
		err := step.run(ctx)

		result := StepResult{
			Name:     step.name,
			Passed:   err == nil,
			Duration: c.clock.Now().Sub(stepStart),
		}
		if err != nil {
			result.Detail = err.Error()
		}
		report.Steps = append(report.Steps, result)

		if err != nil {
			report.Passed = false
			report.FailedStep = step.name
			break
		}
	}

	return report
}

// --- Steps ---

func (c *Checker) checkHealthEndpoint(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.targetBaseURL+"/api/health/axiom", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Status  string `json:"status"`
		Healthy bool   `json:"healthy"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("decode health response: %w", err)
	}
	if !payload.Healthy {
		return fmt.Errorf("log backend reports %q", payload.Status)
	}
	return nil
}

func (c *Checker) checkCancelBelowLimit(ctx context.Context) error {
	result, err := c.submitCancel(ctx, probeBelowLimitAmount)
	if err != nil {
		return err
	}

	if !result.Success {
		return fmt.Errorf("below-limit cancel was rejected: %s", result.Message)
	}
	wantFee := probeBelowLimitAmount / 10
	if result.Tax == nil {
		return fmt.Errorf("below-limit cancel returned no tax, want %.2f", wantFee)
	}
	if *result.Tax != wantFee {
		return fmt.Errorf("below-limit cancel tax mismatch: got %.2f, want %.2f", *result.Tax, wantFee)
	}
	return nil
}

func (c *Checker) checkCancelAboveLimit(ctx context.Context) error {
	result, err := c.submitCancel(ctx, probeAboveLimitAmount)
	if err != nil {
		return err
	}

	if result.Success {
		return fmt.Errorf("above-limit cancel unexpectedly succeeded: %s", result.Message)
	}
	if result.Tax != nil {
		return fmt.Errorf("failed cancel carries a tax of %.2f", *result.Tax)
	}
	return nil
}

func (c *Checker) checkRecentSuccessFields(ctx context.Context) error {
	now := c.clock.Now().UTC()
	records, err := c.logService.ListSuccessful(ctx, now.Add(-24*time.Hour), now, 1)
	if err != nil {
		return fmt.Errorf("fetch recent successes: %w", err)
	}
	// No recent data is not a defect.
	if len(records) == 0 {
		return nil
	}

	record := records[0]
	var missing []string
	if record.OrderId == "" {
		missing = append(missing, model.FieldOrderId)
	}
	if record.Message == "" {
		missing = append(missing, model.FieldMessage)
	}
	if record.Fee == nil {
		missing = append(missing, model.FieldFee)
	}
	if record.Timestamp.IsZero() {
		missing = append(missing, model.FieldTime)
	}

	if len(missing) > 0 {
		return fmt.Errorf("latest success record is missing fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Checker) checkStatisticsConsistency(ctx context.Context) error {
	now := c.clock.Now().UTC()
	stats, err := c.logService.ComputeStatistics(ctx, now.Add(-7*24*time.Hour), now)
	if err != nil {
		return fmt.Errorf("compute statistics: %w", err)
	}

	if sum := stats.SuccessfulCancellations + stats.FailedCancellations; sum != stats.TotalAttempts {
		return fmt.Errorf("attempt counts disagree: %d successful + %d failed, but %d total",
			stats.SuccessfulCancellations, stats.FailedCancellations, stats.TotalAttempts)
	}
	if stats.SuccessRate < 0 || stats.SuccessRate > 1 {
		return fmt.Errorf("success rate %.4f outside [0,1]", stats.SuccessRate)
	}
	return nil
}

// --- HTTP plumbing ---

type cancelRequest struct {
	Id          string  `json:"id"`
	TotalAmount float64 `json:"totalAmount"`
	Status      string  `json:"status"`
}

type cancelResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Tax     *float64 `json:"tax,omitempty"`
}

func (c *Checker) submitCancel(ctx context.Context, amount float64) (*cancelResponse, error) {
	reqBody := cancelRequest{
		Id:          "probe-" + uuid.New().String(),
		TotalAmount: amount,
		Status:      string(model.OrderStatusPending),
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal cancel request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.targetBaseURL+"/api/cancel", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cancel endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cancel endpoint returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result cancelResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode cancel response: %w", err)
	}
	return &result, nil
}

// --- Reporting ---

func (c *Checker) reportCycle(report *CycleReport) {
	details := map[string]interface{}{
		"passed":   report.Passed,
		"steps":    len(report.Steps),
		"duration": report.Duration.String(),
	}

	failDetail := ""
	if !report.Passed {
		details["failed_step"] = report.FailedStep
		if n := len(report.Steps); n > 0 {
			failDetail = report.Steps[n-1].Detail
			details["detail"] = failDetail
		}
	}

	if report.Passed {
		c.logger.Info("QualityChecker", "Quality cycle passed", details)
	} else {
		c.logger.Error("QualityChecker", "Quality cycle failed", details)
	}

	c.publishCycle(report)

	if !report.Passed && c.mailer != nil {
		failedStep := report.FailedStep
		startedAt := report.StartedAt
		go func() {
			if err := c.mailer.SendQualityCycleFailed(failedStep, failDetail, startedAt); err != nil {
				c.logger.Warn("QualityChecker", "Failed to send quality alert", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}()
	}
}

func (c *Checker) publishCycle(report *CycleReport) {
	if c.bus == nil {
		return
	}

	eventType := events.TypeQualityCycleDone
	payload := map[string]interface{}{
		"passed":   report.Passed,
		"steps":    len(report.Steps),
		"duration": report.Duration.String(),
	}
	if !report.Passed {
		eventType = events.TypeQualityCycleFailed
		payload["failed_step"] = report.FailedStep
	}

	event := events.BaseEvent{
		Type:       eventType,
		Data:       payload,
		OccurredAt: report.StartedAt,
	}
	if err := c.bus.Publish(event); err != nil {
		c.logger.Warn("QualityChecker", "Failed to publish cycle event", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
