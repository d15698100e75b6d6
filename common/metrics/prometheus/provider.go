package prometheus

import (
	kitmetrics "github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/tsoniclang/tsonic-node-sub000/common/metrics"
)

// Provider 基于 prometheus 创建度量指标，Registerer 为空时使用 prometheus 的默认注册器。
// 同名指标重复创建时复用已经注册过的指标。
type Provider struct {
	Registerer prom.Registerer
}

func (p *Provider) registerer() prom.Registerer {
	if p.Registerer == nil {
		return prom.DefaultRegisterer
	}
	return p.Registerer
}

func register[T prom.Collector](r prom.Registerer, c T) T {
	if err := r.Register(c); err != nil {
		if are, ok := err.(prom.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

/* ------------------------------------------------------------------------------------------ */

type Counter struct {
	kitmetrics.Counter
}

func (p *Provider) NewCounter(opts metrics.CounterOpts) metrics.Counter {
	cv := prom.NewCounterVec(prom.CounterOpts{
		Namespace: opts.Namespace,
		Subsystem: opts.Subsystem,
		Name:      opts.Name,
		Help:      opts.Help,
	}, opts.LabelNames)
	return &Counter{Counter: prometheus.NewCounter(register(p.registerer(), cv))}
}

func (c *Counter) With(labelsValues ...string) metrics.Counter {
	return &Counter{Counter: c.Counter.With(labelsValues...)}
}

/* ------------------------------------------------------------------------------------------ */

type Gauge struct {
	kitmetrics.Gauge
}

func (p *Provider) NewGauge(opts metrics.GaugeOpts) metrics.Gauge {
	gv := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: opts.Namespace,
		Subsystem: opts.Subsystem,
		Name:      opts.Name,
		Help:      opts.Help,
	}, opts.LabelNames)
	return &Gauge{Gauge: prometheus.NewGauge(register(p.registerer(), gv))}
}

func (g *Gauge) With(labelsValues ...string) metrics.Gauge {
	return &Gauge{Gauge: g.Gauge.With(labelsValues...)}
}

/* ------------------------------------------------------------------------------------------ */

type Histogram struct {
	kitmetrics.Histogram
}

func (p *Provider) NewHistogram(opts metrics.HistogramOpts) metrics.Histogram {
	hv := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: opts.Namespace,
		Subsystem: opts.Subsystem,
		Name:      opts.Name,
		Help:      opts.Help,
		Buckets:   opts.Buckets,
	}, opts.LabelNames)
	return &Histogram{Histogram: prometheus.NewHistogram(register(p.registerer(), hv))}
}

func (h *Histogram) With(labelsValues ...string) metrics.Histogram {
	return &Histogram{Histogram: h.Histogram.With(labelsValues...)}
}
