package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/securticket/securticket/internal/infra/config"
)

// Provider owns the process metric registry. HTTP instrumentation registers
// against it and the /metrics endpoint serves it.
type Provider struct {
	registry  *prometheus.Registry
	namespace string
}

// Attach builds the metric registry with the standard runtime collectors.
func Attach(cfg *config.AppConfig) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	namespace := cfg.Telemetry.Namespace
	if namespace == "" {
		namespace = "securticket"
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Provider{
		registry:  registry,
		namespace: namespace,
	}, nil
}

// Registry exposes the underlying registry for collectors and handlers.
func (p *Provider) Registry() *prometheus.Registry {
	return p.registry
}

// Namespace returns the metric namespace collectors should register under.
func (p *Provider) Namespace() string {
	return p.namespace
}
