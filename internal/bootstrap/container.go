package bootstrap

import (
	"context"
	"log"
	"time"

	"order-cancellation-be/internal/config"
	"order-cancellation-be/internal/controller"
	"order-cancellation-be/internal/monitor"
	"order-cancellation-be/internal/pkg/logger"
	"order-cancellation-be/internal/pkg/mailer"
	"order-cancellation-be/internal/quality"
	"order-cancellation-be/internal/service"
	"order-cancellation-be/internal/websocket"
	"order-cancellation-be/pkg/axiom"
	"order-cancellation-be/pkg/eventbus"

	pkgNats "order-cancellation-be/pkg/nats"
)

type Container struct {
	// Controllers
	CancellationController controller.ICancellationController
	MonitoringController   controller.IMonitoringController

	// Background Workers (Exposed for main.go to run)
	HealthMonitor  *monitor.HealthMonitor
	QualityChecker *quality.Checker

	// WebSockets & event plumbing
	WebSocketHub  *websocket.Hub
	Bus           *eventbus.Bus
	NatsPublisher *pkgNats.Publisher
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	var alertMailer mailer.IAlertMailer
	if cfg.SMTP.Host != "" && cfg.SMTP.AlertEmail != "" {
		alertMailer = mailer.NewAlertMailer(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Email,
			cfg.SMTP.Password,
			cfg.SMTP.Email,
			cfg.SMTP.AlertEmail,
		)
	} else {
		log.Println("[INFO] SMTP not configured, alert mail disabled")
	}

	// 2. Event Bus
	bus := eventbus.New()

	// 3. Log Backend
	axiomClient, err := axiom.NewClient(axiom.Config{
		Token:   cfg.Axiom.APIToken,
		Dataset: cfg.Axiom.Dataset,
		Region:  cfg.Axiom.Region,
		Timeout: cfg.Axiom.RequestTimeout,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize Axiom client: %v", err)
	}
	log.Printf("[INFO] Axiom backend ready (dataset %q, region %s)", cfg.Axiom.Dataset, cfg.Axiom.Region)

	// 4. Services
	logService := service.NewCancellationLogService(axiomClient, bus, sysLogger)
	cancellationService := service.NewCancellationService(logService)

	// 5. Background Workers
	healthMonitor := monitor.New(axiomClient, bus, sysLogger, alertMailer, cfg.Monitor.CheckInterval, nil)

	// The checker probes this service's own HTTP surface, so its reports go
	// to a separate log file to keep them out of the request log.
	qualityLogger := logger.NewIsolatedLogger(cfg.App.QualityLogFilePath)
	qualityChecker := quality.New(
		cfg.Quality.TargetBaseURL,
		logService,
		bus,
		qualityLogger,
		alertMailer,
		cfg.Quality.CheckInterval,
		nil,
	)

	// 6. Event Fan-Out
	wsHub := websocket.NewHub(bus, sysLogger)
	go wsHub.Run()

	var natsPub *pkgNats.Publisher
	if cfg.App.NatsURL != "" {
		natsPub, err = pkgNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
			natsPub = nil
		} else {
			go bridgeBusToNats(bus, natsPub, sysLogger)
		}
	}

	// 7. Controllers
	return &Container{
		CancellationController: controller.NewCancellationController(cancellationService),
		MonitoringController:   controller.NewMonitoringController(healthMonitor, logService, sysLogger),

		HealthMonitor:  healthMonitor,
		QualityChecker: qualityChecker,

		WebSocketHub:  wsHub,
		Bus:           bus,
		NatsPublisher: natsPub,
	}
}

// bridgeBusToNats forwards every bus envelope to the external JetStream
// subjects. Failures are logged and dropped; in-process flow never blocks
// on NATS.
func bridgeBusToNats(bus *eventbus.Bus, pub *pkgNats.Publisher, sysLogger logger.ILogger) {
	msgs, err := bus.SubscribeAll(context.Background())
	if err != nil {
		sysLogger.Error("NATS_BRIDGE", "Failed to subscribe to event bus", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	for msg := range msgs {
		eventType := msg.Metadata.Get("type")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := pub.PublishEnvelope(ctx, eventType, msg.Payload); err != nil {
			sysLogger.Warn("NATS_BRIDGE", "Failed to forward event", map[string]interface{}{
				"error": err.Error(),
				"type":  eventType,
			})
		}
		cancel()

		msg.Ack()
	}
}
