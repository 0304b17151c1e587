package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Axiom   AxiomConfig
	Monitor MonitorConfig
	Quality QualityConfig
	SMTP    SMTPConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	QualityLogFilePath string
	CorsAllowedOrigins string
	NatsURL            string
}

type AxiomConfig struct {
	APIToken       string `validate:"required"`
	Dataset        string `validate:"required"`
	Region         string `validate:"oneof=us eu"`
	RequestTimeout time.Duration
}

type MonitorConfig struct {
	CheckInterval time.Duration
}

type QualityConfig struct {
	CheckInterval time.Duration
	TargetBaseURL string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
	AlertEmail string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	port := getEnv("APP_PORT", "3000")

	return &Config{
		App: AppConfig{
			Port:               port,
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "cancellation.log"),
			QualityLogFilePath: getEnv("QUALITY_LOG_FILE_PATH", "quality.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
		},
		Axiom: AxiomConfig{
			APIToken:       getEnv("AXIOM_API_TOKEN", ""),
			Dataset:        getEnv("AXIOM_DATASET", ""),
			Region:         getEnv("AXIOM_REGION", "us"),
			RequestTimeout: getEnvAsDuration("AXIOM_REQUEST_TIMEOUT", 10*time.Second),
		},
		Monitor: MonitorConfig{
			CheckInterval: getEnvAsDuration("HEALTH_CHECK_INTERVAL", 30*time.Second),
		},
		Quality: QualityConfig{
			CheckInterval: getEnvAsDuration("QUALITY_CHECK_INTERVAL", 5*time.Minute),
			TargetBaseURL: getEnv("QUALITY_TARGET_BASE_URL", "http://localhost:"+port),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "Cancellation Service"),
			AlertEmail: getEnv("ALERT_EMAIL", ""),
		},
	}
}

var validate = validator.New()

// envVarNames maps struct namespaces back to the env vars operators set, so
// validation failures name the knob to fix.
var envVarNames = map[string]string{
	"Config.Axiom.APIToken": "AXIOM_API_TOKEN",
	"Config.Axiom.Dataset":  "AXIOM_DATASET",
	"Config.Axiom.Region":   "AXIOM_REGION",
}

// Validate reports every problem at once. Callers are expected to refuse to
// start on a non-nil result; there are no credential fallbacks.
func (c *Config) Validate() error {
	var problems []string

	if err := validate.Struct(c); err != nil {
		var fieldErrors validator.ValidationErrors
		if !errors.As(err, &fieldErrors) {
			return fmt.Errorf("validate config: %w", err)
		}
		for _, fe := range fieldErrors {
			problems = append(problems, describeFieldError(fe))
		}
	}

	if c.Axiom.RequestTimeout <= 0 {
		problems = append(problems, "AXIOM_REQUEST_TIMEOUT must be positive")
	}
	if c.Monitor.CheckInterval <= 0 {
		problems = append(problems, "HEALTH_CHECK_INTERVAL must be positive")
	}
	if c.Quality.CheckInterval <= 0 {
		problems = append(problems, "QUALITY_CHECK_INTERVAL must be positive")
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	name := envVarNames[fe.Namespace()]
	if name == "" {
		name = fe.Namespace()
	}
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", name, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", name, fe.Tag())
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
