package main

import (
	"context"
	"log"

	"order-cancellation-be/internal/bootstrap"
	"order-cancellation-be/internal/config"
	"order-cancellation-be/internal/server"
	"order-cancellation-be/internal/tracer"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load & Validate Configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Refusing to start: %v", err)
	}

	// 2. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)

	// 3. Start Background Workers
	// Note: In a larger app, we might use an errgroup or supervisor here
	container.HealthMonitor.Start()
	defer container.HealthMonitor.Stop()

	container.QualityChecker.Start()
	defer container.QualityChecker.Stop()

	defer container.NatsPublisher.Close()

	// 4. Initialize Server
	srv := server.New(cfg, container)

	// 5. Run Server
	log.Fatal(srv.Run())
}
