// Package health aggregates component availability checks.
package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store StorePinger
	text  EncoderChecker
	image EncoderChecker
}

// New creates a Service. text and image may be nil; nil encoders are
// simply not reported.
func New(store StorePinger, text, image EncoderChecker) *Service {
	return &Service{store: store, text: text, image: image}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks["vector_store"] = toResult(s.store.Ping(ctx))
	if s.text != nil {
		checks["text_encoder"] = toResult(s.text.HealthCheck(ctx))
	}
	if s.image != nil {
		checks["image_encoder"] = toResult(s.image.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	return Report{Status: status, Checks: checks}
}

func toResult(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
