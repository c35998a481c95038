package prometheus

import (
	"net/http"

	goShare "github.com/MrEthical07/goShare"
	"github.com/MrEthical07/goShare/gateway"
	"github.com/MrEthical07/goShare/metrics/export/internaldefs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metricsSource interface {
	MetricsSnapshot() goShare.MetricsSnapshot
	AuditDropped() uint64
}

type statsSource interface {
	Stats() gateway.Stats
}

// Exporter collects engine counters and, when attached, gateway stats.
type Exporter struct {
	source  metricsSource
	gateway statsSource

	counters     map[goShare.MetricID]*prometheus.Desc
	auditDropped *prometheus.Desc
	gatewayDescs [6]*prometheus.Desc
}

var gatewayDefs = [6]internaldefs.GaugeDef{
	internaldefs.GatewayLive,
	internaldefs.GatewayAccepted,
	internaldefs.GatewayRejected,
	internaldefs.GatewayTerminated,
	internaldefs.GatewayDelivered,
	internaldefs.GatewaySendFailed,
}

// NewExporter reads from engine.
func NewExporter(engine *goShare.Engine) *Exporter {
	return NewExporterFromSource(engine)
}

// NewExporterFromSource reads from any snapshot source.
func NewExporterFromSource(source metricsSource) *Exporter {
	e := &Exporter{
		source:       source,
		counters:     make(map[goShare.MetricID]*prometheus.Desc, len(internaldefs.CounterDefs)),
		auditDropped: prometheus.NewDesc(internaldefs.AuditDroppedName, "Audit events dropped due to dispatcher backpressure.", nil, nil),
	}
	for _, def := range internaldefs.CounterDefs {
		e.counters[def.ID] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	for i, def := range gatewayDefs {
		e.gatewayDescs[i] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	return e
}

// WithGateway attaches the event gateway statistics.
func (e *Exporter) WithGateway(g statsSource) *Exporter {
	e.gateway = g
	return e
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	for _, def := range internaldefs.CounterDefs {
		ch <- e.counters[def.ID]
	}
	ch <- e.auditDropped
	for _, d := range e.gatewayDescs {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	if e.source != nil {
		snapshot := e.source.MetricsSnapshot()
		dropped := e.source.AuditDropped()
		if len(snapshot.Counters) > 0 || dropped > 0 {
			for _, def := range internaldefs.CounterDefs {
				ch <- prometheus.MustNewConstMetric(e.counters[def.ID], prometheus.CounterValue, float64(snapshot.Counters[def.ID]))
			}
			ch <- prometheus.MustNewConstMetric(e.auditDropped, prometheus.CounterValue, float64(dropped))
		}
	}

	if e.gateway == nil {
		return
	}
	s := e.gateway.Stats()
	values := [6]float64{
		float64(s.Live),
		float64(s.Accepted),
		float64(s.Rejected),
		float64(s.Terminated),
		float64(s.Delivered),
		float64(s.SendFailed),
	}
	for i, def := range gatewayDefs {
		kind := prometheus.GaugeValue
		if def.Counter {
			kind = prometheus.CounterValue
		}
		ch <- prometheus.MustNewConstMetric(e.gatewayDescs[i], kind, values[i])
	}
}

// Register adds the exporter to reg.
func (e *Exporter) Register(reg prometheus.Registerer) error {
	return reg.Register(e)
}

// Handler serves the exporter and the Go runtime collectors from a private
// registry.
func (e *Exporter) Handler() http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(e)
	reg.MustRegister(prometheus.NewGoCollector())
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
