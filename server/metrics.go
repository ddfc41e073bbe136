package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics 仿真服务的Prometheus指标
type Metrics struct {
	registry *prometheus.Registry

	Version          prometheus.Gauge
	Vehicles         prometheus.Gauge
	Clients          prometheus.Gauge
	Throughput       prometheus.Gauge
	TravelTime       *prometheus.GaugeVec
	CommandsReceived *prometheus.CounterVec
	CommandsDropped  prometheus.Counter
	CommandsInvalid  prometheus.Counter
}

// NewMetrics 创建并注册指标
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Version: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "highway_state_version",
			Help: "Version of the last published state",
		}),
		Vehicles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "highway_vehicles",
			Help: "Vehicles on the road in the last full snapshot",
		}),
		Clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "highway_ws_clients",
			Help: "Connected WebSocket clients",
		}),
		Throughput: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "highway_throughput_veh_per_hour",
			Help: "Exits in the trailing window scaled to vehicles per hour",
		}),
		TravelTime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "highway_travel_time_seconds",
			Help: "Travel time percentiles over the recent exits",
		}, []string{"quantile"}),
		CommandsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "highway_commands_received_total",
			Help: "Commands accepted from clients by type",
		}, []string{"type"}),
		CommandsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "highway_commands_dropped_total",
			Help: "Commands dropped because the command queue was full",
		}),
		CommandsInvalid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "highway_commands_invalid_total",
			Help: "Client messages that could not be parsed",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Version, m.Vehicles, m.Clients, m.Throughput, m.TravelTime,
		m.CommandsReceived, m.CommandsDropped, m.CommandsInvalid,
	)
	return m
}

// Registry 指标注册表，供/metrics使用
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
