package ports

//go:generate mockgen -source=health.go -destination=mocks/health_mock.go -package=mocks

import "context"

// HealthChecker is one dependency reported by GET /health.
type HealthChecker interface {
	// Ping returns nil when the dependency can serve ledger traffic.
	Ping(ctx context.Context) error
	Name() string
}
