// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package prometheus exports scheduler metrics as Prometheus collectors.
package prometheus

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"code.hybscloud.com/mtask"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// MetricsExporter adapts mtask.Metrics to Prometheus collectors.
type MetricsExporter struct {
	taskDurationSeconds *prom.HistogramVec
	taskPanicTotal      *prom.CounterVec
	resumeTotal         *prom.CounterVec
	parkedTasks         *prom.GaugeVec
	idleFibers          *prom.GaugeVec
}

var _ mtask.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for
// mtask.Metrics. Registering twice on the same registry shares the
// collectors.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "mtask"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.ExponentialBuckets(1e-6, 4, 12)
	}

	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Task wall time in seconds, including time parked in WaitFor.",
		Buckets:   buckets,
	}, []string{"scheduler"})
	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_panic_total",
		Help:      "Total number of recovered task panics.",
	}, []string{"scheduler", "worker"})
	resumeVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "resume_total",
		Help:      "Total number of parked tasks resumed.",
	}, []string{"scheduler", "migrated"})
	parkedVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "parked_tasks",
		Help:      "Current number of tasks parked in the registry.",
	}, []string{"scheduler"})
	idleVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "idle_fibers",
		Help:      "Current number of idle fibers in the pool.",
	}, []string{"scheduler"})

	var err error
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}
	if resumeVec, err = registerCollector(reg, resumeVec); err != nil {
		return nil, err
	}
	if parkedVec, err = registerCollector(reg, parkedVec); err != nil {
		return nil, err
	}
	if idleVec, err = registerCollector(reg, idleVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		taskDurationSeconds: durationVec,
		taskPanicTotal:      panicVec,
		resumeTotal:         resumeVec,
		parkedTasks:         parkedVec,
		idleFibers:          idleVec,
	}, nil
}

// RecordTaskDuration records task wall time.
func (m *MetricsExporter) RecordTaskDuration(scheduler string, d time.Duration) {
	if m == nil {
		return
	}
	m.taskDurationSeconds.WithLabelValues(normalizeLabel(scheduler, "unknown")).Observe(d.Seconds())
}

// RecordTaskPanic records recovered task panics.
func (m *MetricsExporter) RecordTaskPanic(scheduler string, workerID uint32, _ any) {
	if m == nil {
		return
	}
	m.taskPanicTotal.WithLabelValues(normalizeLabel(scheduler, "unknown"), strconv.FormatUint(uint64(workerID), 10)).Inc()
}

// RecordResume records a parked task resuming.
func (m *MetricsExporter) RecordResume(scheduler string, migrated bool) {
	if m == nil {
		return
	}
	m.resumeTotal.WithLabelValues(normalizeLabel(scheduler, "unknown"), strconv.FormatBool(migrated)).Inc()
}

// RecordParked records the number of parked tasks.
func (m *MetricsExporter) RecordParked(scheduler string, n int) {
	if m == nil {
		return
	}
	m.parkedTasks.WithLabelValues(normalizeLabel(scheduler, "unknown")).Set(float64(n))
}

// RecordIdleFibers records the number of idle pool fibers.
func (m *MetricsExporter) RecordIdleFibers(scheduler string, n int) {
	if m == nil {
		return
	}
	m.idleFibers.WithLabelValues(normalizeLabel(scheduler, "unknown")).Set(float64(n))
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
