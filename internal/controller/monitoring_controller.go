// FILE: internal/controller/monitoring_controller.go
package controller

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"order-cancellation-be/internal/dto"
	"order-cancellation-be/internal/mapper"
	"order-cancellation-be/internal/model"
	"order-cancellation-be/internal/monitor"
	"order-cancellation-be/internal/pkg/logger"
	"order-cancellation-be/internal/pkg/serverutils"
	"order-cancellation-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/patrickmn/go-cache"
)

const (
	defaultStatsWindow = 30 * 24 * time.Hour
	defaultListWindow  = 7 * 24 * time.Hour
	defaultListLimit   = 100
	maxListLimit       = 1000
	statsCacheTTL      = 30 * time.Second
)

type IMonitoringController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
	Statistics(ctx *fiber.Ctx) error
	SuccessfulLogs(ctx *fiber.Ctx) error
	FailedLogs(ctx *fiber.Ctx) error
}

type monitoringController struct {
	monitor    *monitor.HealthMonitor
	logService service.ICancellationLogService
	mapper     *mapper.AttemptRecordMapper
	statsCache *cache.Cache
	logger     logger.ILogger
}

func NewMonitoringController(healthMonitor *monitor.HealthMonitor, logService service.ICancellationLogService, log logger.ILogger) IMonitoringController {
	return &monitoringController{
		monitor:    healthMonitor,
		logService: logService,
		mapper:     mapper.NewAttemptRecordMapper(),
		statsCache: cache.New(statsCacheTTL, 2*statsCacheTTL),
		logger:     log,
	}
}

func (c *monitoringController) RegisterRoutes(r fiber.Router) {
	r.Get("/health/axiom", c.Health)
	r.Get("/stats/cancellations", c.Statistics)

	logs := r.Group("/logs/cancellations")
	logs.Get("/successful", c.SuccessfulLogs)
	logs.Get("/failed", c.FailedLogs)
}

func (c *monitoringController) Health(ctx *fiber.Ctx) error {
	status := c.monitor.Status()

	resp := dto.HealthResponse{
		Status:  string(status),
		Healthy: status.Healthy(),
	}
	if !resp.Healthy {
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return ctx.JSON(resp)
}

func (c *monitoringController) Statistics(ctx *fiber.Ctx) error {
	start, end, err := parseWindow(ctx, defaultStatsWindow)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(fiber.StatusBadRequest, err.Error()))
	}

	// Rounding the key lets the default now-anchored window reuse entries
	// instead of missing on every request.
	key := statsCacheKey(start, end)
	if cached, ok := c.statsCache.Get(key); ok {
		return ctx.JSON(cached.(*model.CancellationStatistics))
	}

	stats, err := c.logService.ComputeStatistics(ctx.Context(), start, end)
	if err != nil {
		c.logger.Error("MONITORING", "Failed to compute cancellation statistics", map[string]interface{}{
			"error":      err.Error(),
			"start_date": start.Format(time.RFC3339),
			"end_date":   end.Format(time.RFC3339),
		})
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(fiber.StatusInternalServerError, "failed to compute statistics"))
	}

	c.statsCache.Set(key, stats, cache.DefaultExpiration)
	return ctx.JSON(stats)
}

func (c *monitoringController) SuccessfulLogs(ctx *fiber.Ctx) error {
	return c.listLogs(ctx, "successful", c.logService.ListSuccessful)
}

func (c *monitoringController) FailedLogs(ctx *fiber.Ctx) error {
	return c.listLogs(ctx, "failed", c.logService.ListFailed)
}

func (c *monitoringController) listLogs(ctx *fiber.Ctx, outcome string, fetch func(context.Context, time.Time, time.Time, int) ([]*model.CancellationAttemptRecord, error)) error {
	start, end, err := parseWindow(ctx, defaultListWindow)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(fiber.StatusBadRequest, err.Error()))
	}

	limit := defaultListLimit
	if raw := ctx.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(fiber.StatusBadRequest, "limit must be a positive integer"))
		}
		limit = parsed
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	records, err := fetch(ctx.Context(), start, end, limit)
	if err != nil {
		c.logger.Error("MONITORING", "Failed to fetch cancellation logs", map[string]interface{}{
			"error":   err.Error(),
			"outcome": outcome,
		})
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(fiber.StatusInternalServerError, "failed to fetch cancellation logs"))
	}

	// Log lists serve the raw record array; only error bodies are enveloped.
	return ctx.JSON(c.mapper.ToResponseList(records))
}

// parseWindow reads startDate/endDate query params, falling back to the
// trailing span ending now. Dates accept RFC3339 or plain YYYY-MM-DD.
func parseWindow(ctx *fiber.Ctx, span time.Duration) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	start := now.Add(-span)
	end := now

	if raw := ctx.Query("startDate"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid startDate %q", raw)
		}
		start = parsed
	}
	if raw := ctx.Query("endDate"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid endDate %q", raw)
		}
		end = parsed
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("startDate must not be after endDate")
	}

	return start, end, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func statsCacheKey(start, end time.Time) string {
	return fmt.Sprintf("stats:%d:%d", start.Truncate(time.Minute).Unix(), end.Truncate(time.Minute).Unix())
}
