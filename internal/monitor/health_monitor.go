// FILE: internal/monitor/health_monitor.go
// Package monitor polls the log backend on a fixed interval and tracks a
// tri-state health status. Status changes are published on the event bus;
// consecutive identical probe results stay silent.
package monitor

import (
	"context"
	"sync"
	"time"

	"order-cancellation-be/internal/model"
	"order-cancellation-be/internal/pkg/logger"
	"order-cancellation-be/internal/pkg/mailer"
	"order-cancellation-be/pkg/eventbus"
	"order-cancellation-be/pkg/events"
)

const defaultInterval = 30 * time.Second

// HealthProber is the probe slice of the axiom client.
type HealthProber interface {
	CheckHealth(ctx context.Context) bool
}

type HealthMonitor struct {
	prober   HealthProber
	bus      *eventbus.Bus
	logger   logger.ILogger
	mailer   mailer.IAlertMailer
	interval time.Duration
	clock    Clock

	mu      sync.Mutex
	status  model.HealthStatus
	running bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// New builds a monitor starting in the unknown state. bus and alertMailer
// may be nil; clock nil defaults to the real clock.
func New(prober HealthProber, bus *eventbus.Bus, log logger.ILogger, alertMailer mailer.IAlertMailer, interval time.Duration, clock Clock) *HealthMonitor {
	if clock == nil {
		clock = realClock{}
	}
	if interval <= 0 {
		interval = defaultInterval
	}

	return &HealthMonitor{
		prober:   prober,
		bus:      bus,
		logger:   log,
		mailer:   alertMailer,
		interval: interval,
		clock:    clock,
		status:   model.HealthStatusUnknown,
	}
}

// Start launches the check loop: one immediate check, then one per interval.
// Calling Start on a running monitor is a no-op.
func (m *HealthMonitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	m.logger.Info("HealthMonitor", "Starting health monitor", map[string]interface{}{
		"interval": m.interval.String(),
	})

	m.wg.Add(1)
	go m.run(done)
}

// Stop cancels the schedule and waits for the loop to exit. Idempotent.
func (m *HealthMonitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.done)
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Info("HealthMonitor", "Health monitor stopped", nil)
}

// Status returns the last known status without touching the network.
func (m *HealthMonitor) Status() model.HealthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *HealthMonitor) run(done chan struct{}) {
	defer m.wg.Done()

	ticker := m.clock.Ticker(m.interval)
	defer ticker.Stop()

	m.Check(context.Background())

	for {
		select {
		case <-done:
			return
		case <-ticker.Chan():
			m.Check(context.Background())
		}
	}
}

// Check probes the backend once and folds the result into the status. The
// very first probe only establishes a baseline: notifications fire solely
// for transitions between two known statuses, at most one per transition.
func (m *HealthMonitor) Check(ctx context.Context) {
	newStatus := model.HealthStatusUnhealthy
	if m.prober.CheckHealth(ctx) {
		newStatus = model.HealthStatusHealthy
	}

	m.mu.Lock()
	oldStatus := m.status
	if newStatus != oldStatus {
		m.status = newStatus
	}
	m.mu.Unlock()

	if newStatus == oldStatus {
		return
	}

	now := m.clock.Now().UTC()

	if oldStatus == model.HealthStatusUnknown {
		m.logger.Info("HealthMonitor", "Initial health status established", map[string]interface{}{
			"status": string(newStatus),
		})
		return
	}

	m.logger.Warn("HealthMonitor", "Health status changed", map[string]interface{}{
		"old_status": string(oldStatus),
		"new_status": string(newStatus),
	})

	m.publish(events.BaseEvent{
		Type: events.TypeHealthStatusChanged,
		Data: map[string]interface{}{
			"old_status": string(oldStatus),
			"new_status": string(newStatus),
		},
		OccurredAt: now,
	})

	specific := events.TypeHealthHealthy
	if newStatus == model.HealthStatusUnhealthy {
		specific = events.TypeHealthUnhealthy
	}
	m.publish(events.BaseEvent{
		Type:       specific,
		Data:       map[string]interface{}{"status": string(newStatus)},
		OccurredAt: now,
	})

	if newStatus == model.HealthStatusUnhealthy && m.mailer != nil {
		go func() {
			if err := m.mailer.SendBackendUnhealthy(string(oldStatus), now); err != nil {
				m.logger.Warn("HealthMonitor", "Failed to send unhealthy alert", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}()
	}
}

func (m *HealthMonitor) publish(event events.BaseEvent) {
	if m.bus == nil {
		return
	}
	if err := m.bus.Publish(event); err != nil {
		m.logger.Warn("HealthMonitor", "Failed to publish health event", map[string]interface{}{
			"type":  event.Type,
			"error": err.Error(),
		})
	}
}
