package validation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zfogg/watchfeed/internal/logger"
	"go.uber.org/zap"
)

// CheckFunc checks one backing service
type CheckFunc func(ctx context.Context) error

// ServiceValidator verifies that required backing services are reachable at startup
type ServiceValidator struct {
	requiredServices []string
	checks           map[string]CheckFunc
	timeout          time.Duration
}

// NewServiceValidator creates a validator for the named services. Names are
// matched case-insensitively against the registered checks.
func NewServiceValidator(required []string) *ServiceValidator {
	names := make([]string, 0, len(required))
	for _, s := range required {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			names = append(names, s)
		}
	}
	return &ServiceValidator{
		requiredServices: names,
		checks:           make(map[string]CheckFunc),
		timeout:          10 * time.Second,
	}
}

// Register adds a named check
func (sv *ServiceValidator) Register(name string, check CheckFunc) *ServiceValidator {
	sv.checks[strings.ToLower(name)] = check
	return sv
}

// ValidateServices runs the check for every required service and fails on the first error
func (sv *ServiceValidator) ValidateServices(ctx context.Context) error {
	if len(sv.requiredServices) == 0 {
		logger.Log.Info("No required services configured for validation")
		return nil
	}

	logger.Log.Info("🔍 Validating required services",
		zap.Strings("services", sv.requiredServices),
	)

	for _, serviceName := range sv.requiredServices {
		check, ok := sv.checks[serviceName]
		if !ok {
			logger.Log.Warn("Unknown service type in validation",
				zap.String("service", serviceName),
			)
			continue
		}

		timeoutCtx, cancel := context.WithTimeout(ctx, sv.timeout)
		err := check(timeoutCtx)
		cancel()
		if err != nil {
			logger.Log.Error("❌ Required service validation failed",
				zap.String("service", serviceName),
				zap.Error(err),
			)
			return fmt.Errorf("required service %q validation failed: %w", serviceName, err)
		}

		logger.Log.Info("✅ Service validated successfully",
			zap.String("service", serviceName),
		)
	}

	logger.Log.Info("✅ All required services validated successfully")
	return nil
}
