// Copyright 2026 © The TSera Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	tserrors "github.com/tsera-dev/tsera/pkg/errors"
)

// CycleStats is the running tally kept by EngineMetrics. It feeds the
// Prometheus textfile export.
type CycleStats struct {
	Planned     map[string]int64 // by action
	Applied     map[string]int64 // by action, successful steps only
	Failed      int64
	Errors      map[string]int64 // by error code
	Duration    time.Duration    // last apply
	Runs        int64
	LastSuccess time.Time
}

// EngineMetrics records plan and apply measurements as OTel instruments.
type EngineMetrics struct {
	// planSteps counts classified outputs by action
	planSteps metric.Int64Counter

	// applySteps counts executed steps by action and status
	applySteps metric.Int64Counter

	// applyErrors counts failures by error code and component
	applyErrors metric.Int64Counter

	// applyDuration records the wall time of whole applies
	applyDuration metric.Float64Histogram

	mu    sync.Mutex
	stats CycleStats
	now   func() time.Time
}

// NewEngineMetrics creates the engine instruments on the global meter provider.
func NewEngineMetrics(ctx context.Context) (*EngineMetrics, error) {
	meter := otel.Meter("tsera/engine")

	planSteps, err := meter.Int64Counter(
		"tsera.plan.steps",
		metric.WithDescription("Planned steps by action"),
	)
	if err != nil {
		return nil, err
	}

	applySteps, err := meter.Int64Counter(
		"tsera.apply.steps",
		metric.WithDescription("Applied steps by action and status"),
	)
	if err != nil {
		return nil, err
	}

	applyErrors, err := meter.Int64Counter(
		"tsera.apply.errors",
		metric.WithDescription("Engine errors by code and component"),
	)
	if err != nil {
		return nil, err
	}

	applyDuration, err := meter.Float64Histogram(
		"tsera.apply.duration",
		metric.WithDescription("Duration of an apply run"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &EngineMetrics{
		planSteps:     planSteps,
		applySteps:    applySteps,
		applyErrors:   applyErrors,
		applyDuration: applyDuration,
		stats: CycleStats{
			Planned: make(map[string]int64),
			Applied: make(map[string]int64),
			Errors:  make(map[string]int64),
		},
		now: time.Now,
	}, nil
}

// RecordPlan records the per-action counts of a computed plan.
func (em *EngineMetrics) RecordPlan(ctx context.Context, create, update, del, noop int) {
	if em == nil {
		return
	}
	em.mu.Lock()
	defer em.mu.Unlock()

	for action, n := range map[string]int{"create": create, "update": update, "delete": del, "noop": noop} {
		if n == 0 {
			continue
		}
		em.planSteps.Add(ctx, int64(n), metric.WithAttributes(attribute.String(AttrStepAction, action)))
		em.stats.Planned[action] += int64(n)
	}
}

// RecordApplyStep records one executed step.
func (em *EngineMetrics) RecordApplyStep(ctx context.Context, action string, err error) {
	if em == nil {
		return
	}
	em.mu.Lock()
	defer em.mu.Unlock()

	status := "applied"
	if err != nil {
		status = "failed"
		em.stats.Failed++
	} else {
		em.stats.Applied[action]++
	}
	em.applySteps.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(AttrStepAction, action),
			attribute.String(AttrStatus, status),
		),
	)
}

// RecordApply records a whole apply run. A failed run also counts as an
// error of the apply component.
func (em *EngineMetrics) RecordApply(ctx context.Context, d time.Duration, err error) {
	if em == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "failed"
		em.RecordError(ctx, err, "apply")
	}

	em.mu.Lock()
	defer em.mu.Unlock()
	em.applyDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String(AttrStatus, status)))
	em.stats.Duration = d
	em.stats.Runs++
	if err == nil {
		em.stats.LastSuccess = em.now()
	}
}

// RecordError counts err under its error code.
func (em *EngineMetrics) RecordError(ctx context.Context, err error, component string) {
	if em == nil || err == nil {
		return
	}
	em.mu.Lock()
	defer em.mu.Unlock()

	code := string(tserrors.CodeOf(err))
	em.stats.Errors[code]++
	em.applyErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(AttrErrorCode, code),
			attribute.String(AttrComponent, component),
		),
	)
}

// Stats returns a copy of the tally.
func (em *EngineMetrics) Stats() CycleStats {
	if em == nil {
		return CycleStats{}
	}
	em.mu.Lock()
	defer em.mu.Unlock()

	s := em.stats
	s.Planned = copyCounts(em.stats.Planned)
	s.Applied = copyCounts(em.stats.Applied)
	s.Errors = copyCounts(em.stats.Errors)
	return s
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
