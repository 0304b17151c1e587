package model

// HealthStatus is the tri-state availability of the log backend.
// Unknown holds only until the first probe completes; after that the
// monitor moves freely between healthy and unhealthy.
type HealthStatus string

const (
	HealthStatusUnknown   HealthStatus = "unknown"
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// Healthy reports whether the backend is known to be reachable.
func (s HealthStatus) Healthy() bool {
	return s == HealthStatusHealthy
}
