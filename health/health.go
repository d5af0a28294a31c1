// Package health produces the health document consumed by the service
// registry and by operators.
//
// Health is derived from process-level resource usage: the service is UP
// while its share of system memory stays below 90% and the CPU gauge is
// readable. Probing is abstracted behind SystemProbe so the thresholds
// can be tested without depending on host load.
package health

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/linqra/counterapp/api"
)

// Health status values reported in the health document.
const (
	StatusUp   = "UP"
	StatusDown = "DOWN"
)

const (
	// memoryThresholdPercent is the process memory share above which the
	// service reports DOWN.
	memoryThresholdPercent = 90.0

	// cpuSampleWindow is how long the CPU gauge samples before returning.
	cpuSampleWindow = 100 * time.Millisecond
)

// SystemProbe reads process and system resource gauges.
type SystemProbe interface {
	// ProcessMemoryPercent returns this process's share of total system
	// memory, in percent.
	ProcessMemoryPercent() (float64, error)

	// CPUPercent returns system CPU utilization in percent, sampled over
	// a short window. The call blocks for the sample duration.
	CPUPercent() (float64, error)

	// BaselineResponseTime returns the duration of a trivial system read
	// in milliseconds, used as the responseTime gauge.
	BaselineResponseTime() (float64, error)
}

// GopsutilProbe reads gauges for the current process through gopsutil.
type GopsutilProbe struct {
	proc *process.Process
}

// NewGopsutilProbe creates a probe bound to the current process.
func NewGopsutilProbe() (*GopsutilProbe, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("binding to current process: %w", err)
	}
	return &GopsutilProbe{proc: proc}, nil
}

// ProcessMemoryPercent returns the current process's share of system memory.
func (p *GopsutilProbe) ProcessMemoryPercent() (float64, error) {
	pct, err := p.proc.MemoryPercent()
	if err != nil {
		return 0, err
	}
	return float64(pct), nil
}

// CPUPercent returns system-wide CPU utilization sampled over cpuSampleWindow.
func (p *GopsutilProbe) CPUPercent() (float64, error) {
	pcts, err := cpu.Percent(cpuSampleWindow, false)
	if err != nil {
		return 0, err
	}
	if len(pcts) == 0 {
		return 0, fmt.Errorf("cpu percent returned no samples")
	}
	return pcts[0], nil
}

// BaselineResponseTime times a virtual memory read and returns the
// elapsed time in milliseconds.
func (p *GopsutilProbe) BaselineResponseTime() (float64, error) {
	start := time.Now()
	if _, err := mem.VirtualMemory(); err != nil {
		return 0, err
	}
	return float64(time.Since(start)) / float64(time.Millisecond), nil
}

// Reporter assembles health documents for the service.
type Reporter struct {
	serviceID string
	started   time.Time
	probe     SystemProbe
	log       *slog.Logger
}

// NewReporter creates a Reporter for the named service. Uptime is
// measured from the time of this call.
func NewReporter(serviceID string, probe SystemProbe, log *slog.Logger) *Reporter {
	return &Reporter{
		serviceID: serviceID,
		started:   time.Now(),
		probe:     probe,
		log:       log,
	}
}

// Healthy probes resource gauges and reports whether the process is
// within thresholds. Probe failures count as unhealthy.
func (r *Reporter) Healthy() bool {
	memPct, err := r.probe.ProcessMemoryPercent()
	if err != nil {
		r.log.Error("Memory probe failed", "err", err)
		return false
	}
	cpuPct, err := r.probe.CPUPercent()
	if err != nil {
		r.log.Error("CPU probe failed", "err", err)
		return false
	}
	return r.withinThresholds(memPct, cpuPct)
}

// Document probes resource gauges once and assembles the full health
// document. A probe failure produces a DOWN document with error markers
// in place of the usual metrics.
func (r *Reporter) Document() api.HealthDocument {
	timestamp := time.Now().UTC().Format(time.RFC3339)

	memPct, err := r.probe.ProcessMemoryPercent()
	if err != nil {
		r.log.Error("Memory probe failed", "err", err)
		return r.errorDocument(timestamp)
	}
	cpuPct, err := r.probe.CPUPercent()
	if err != nil {
		r.log.Error("CPU probe failed", "err", err)
		return r.errorDocument(timestamp)
	}
	responseTime, err := r.probe.BaselineResponseTime()
	if err != nil {
		r.log.Error("Response time probe failed", "err", err)
		return r.errorDocument(timestamp)
	}

	status := StatusDown
	if r.withinThresholds(memPct, cpuPct) {
		status = StatusUp
	}

	r.log.Debug("Health check",
		"memoryPercent", memPct,
		"cpuPercent", cpuPct,
		"status", status)

	return api.HealthDocument{
		ServiceID: r.serviceID,
		Status:    status,
		Uptime:    formatUptime(time.Since(r.started)),
		Timestamp: timestamp,
		Metrics: map[string]float64{
			"cpu":          round2(cpuPct),
			"memory":       round2(memPct),
			"responseTime": round2(responseTime),
		},
	}
}

func (r *Reporter) withinThresholds(memPct, cpuPct float64) bool {
	return memPct < memoryThresholdPercent && cpuPct >= 0
}

func (r *Reporter) errorDocument(timestamp string) api.HealthDocument {
	return api.HealthDocument{
		ServiceID: r.serviceID,
		Status:    StatusDown,
		Uptime:    "0d 0h 0m 0s",
		Timestamp: timestamp,
		Metrics: map[string]float64{
			"error":   1.0,
			"message": 0.0,
		},
	}
}

func formatUptime(d time.Duration) string {
	total := int64(d.Seconds())
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
