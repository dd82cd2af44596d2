package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates the document store is unreachable.
	Unhealthy Status = "error"
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
	Status            Status
	DatabaseConnected bool
	CollectionsCount  int
	Checks            map[string]CheckResult
	Uptime            time.Duration
}

// Service coordinates health checks.
type Service struct {
	db         DBPinger
	counter    CollectionCounter
	cache      CachePinger
	translator TranslatorChecker
	started    time.Time
}

// New creates a Service. cache and translator can be nil.
func New(db DBPinger, counter CollectionCounter, cache CachePinger, translator TranslatorChecker) *Service {
	return &Service{
		db:         db,
		counter:    counter,
		cache:      cache,
		translator: translator,
		started:    time.Now(),
	}
}

// Check runs health checks against all components. A dead document store
// makes the service unhealthy; a dead cache or translator only degrades it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	dbOK := s.db.Ping(ctx) == nil
	if dbOK {
		checks["database"] = CheckOK
	} else {
		checks["database"] = CheckError
	}

	collections := 0
	if dbOK {
		if names, err := s.counter.ListCollectionNames(ctx); err == nil {
			collections = len(names)
		}
	}

	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			checks["cache"] = CheckError
		} else {
			checks["cache"] = CheckOK
		}
	}

	if s.translator != nil {
		if err := s.translator.HealthCheck(ctx); err != nil {
			checks["translator"] = CheckError
		} else {
			checks["translator"] = CheckOK
		}
	}

	status := Healthy
	if !dbOK {
		status = Unhealthy
	} else {
		for _, v := range checks {
			if v == CheckError {
				status = Degraded
				break
			}
		}
	}

	return Report{
		Status:            status,
		DatabaseConnected: dbOK,
		CollectionsCount:  collections,
		Checks:            checks,
		Uptime:            time.Since(s.started),
	}
}
