// Package datadog sends load step and object metrics to a DogStatsD agent.
//
// Step counters become DogStatsD counts and step durations become
// histograms. Labels such as step, mode and status are sent as "key:value"
// tags. Every metric also carries the pipeline job and the service tag.
package datadog

import (
	"fmt"

	"github.com/DataDog/datadog-go/v5/statsd"

	"jsonload/internal/metrics"
)

const (
	// DefaultNamespace prefixes metric names when Config.Namespace is empty.
	DefaultNamespace = "jsonload."
	// ServiceTag is attached to every metric.
	ServiceTag = "service:jsonload"
)

// Config configures the DogStatsD backend.
type Config struct {
	// Addr is the agent address, "127.0.0.1:8125" or "unix:///path/to/socket".
	Addr string
	// Namespace overrides DefaultNamespace.
	Namespace string
	// Job is the pipeline job, sent as the job tag.
	Job string
	// Tags are extra "key:value" tags from the pipeline config.
	Tags []string
}

// tags returns the constant tags sent with every metric.
func (c Config) tags() []string {
	tags := []string{ServiceTag}
	if c.Job != "" {
		tags = append(tags, "job:"+c.Job)
	}
	return append(tags, c.Tags...)
}

// Backend implements metrics.Backend over a statsd client.
type Backend struct {
	client *statsd.Client
}

// NewBackend dials the agent at cfg.Addr.
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("datadog: dogstatsd address is required")
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = DefaultNamespace
	}

	c, err := statsd.New(cfg.Addr,
		statsd.WithNamespace(namespace),
		statsd.WithTags(cfg.tags()),
	)
	if err != nil {
		return nil, fmt.Errorf("datadog: create client: %w", err)
	}
	return &Backend{client: c}, nil
}

// IncCounter implements metrics.Backend. Step and object counts are whole
// numbers, so delta is truncated.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	_ = b.client.Count(name, int64(delta), labelsToTags(labels), 1)
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	_ = b.client.Histogram(name, value, labelsToTags(labels), 1)
}

// Flush closes the client, sending anything still buffered. Call it once the
// pipeline has finished.
func (b *Backend) Flush() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}

func labelsToTags(lbls metrics.Labels) []string {
	if len(lbls) == 0 {
		return nil
	}
	out := make([]string, 0, len(lbls))
	for k, v := range lbls {
		out = append(out, k+":"+v)
	}
	return out
}
