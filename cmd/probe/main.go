// One-shot quality probe. Runs the same cycle the background checker runs
// and prints the per-step outcome, exiting non-zero on failure so it can
// gate deploys:
//
//	go run ./cmd/probe [target-base-url]
package main

import (
	"context"
	"log"
	"os"

	"order-cancellation-be/internal/config"
	"order-cancellation-be/internal/pkg/logger"
	"order-cancellation-be/internal/quality"
	"order-cancellation-be/internal/service"
	"order-cancellation-be/pkg/axiom"

	"github.com/fatih/color"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		color.Red("Configuration error: %v", err)
		os.Exit(1)
	}

	target := cfg.Quality.TargetBaseURL
	if len(os.Args) > 1 {
		target = os.Args[1]
	}

	axiomClient, err := axiom.NewClient(axiom.Config{
		Token:   cfg.Axiom.APIToken,
		Dataset: cfg.Axiom.Dataset,
		Region:  cfg.Axiom.Region,
		Timeout: cfg.Axiom.RequestTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to initialize Axiom client: %v", err)
	}

	logService := service.NewCancellationLogService(axiomClient, nil, logger.NewNopLogger())
	checker := quality.New(target, logService, nil, logger.NewNopLogger(), nil, 0, nil)

	color.Cyan("🔍 Running quality cycle against %s\n", target)

	report := checker.RunCycle(context.Background())

	for i, step := range report.Steps {
		if step.Passed {
			color.Green("  ✔ %d. %s (%s)", i+1, step.Name, step.Duration)
		} else {
			color.Red("  ✘ %d. %s: %s", i+1, step.Name, step.Detail)
		}
	}

	if !report.Passed {
		color.Red("\n❌ Cycle failed at %q after %s", report.FailedStep, report.Duration)
		os.Exit(1)
	}
	color.Cyan("\n✅ All checks passed in %s", report.Duration)
}
