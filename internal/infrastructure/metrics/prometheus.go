// Package metrics expone métricas Prometheus del pipeline de envío fiscal.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/facturador-api/internal/application/billing"
)

var _ billing.Metrics = (*Prometheus)(nil)

// Prometheus registra métricas en un registry propio (sin colisiones con el global).
type Prometheus struct {
	registry *prometheus.Registry

	submissions        *prometheus.CounterVec
	submissionDuration *prometheus.HistogramVec
	tokenRefreshes     *prometheus.CounterVec
	sweepRecovered     prometheus.Counter
	sweepRetried       prometheus.Counter
}

// NewPrometheus crea y registra las métricas bajo el namespace dado.
func NewPrometheus(namespace string) *Prometheus {
	p := &Prometheus{registry: prometheus.NewRegistry()}

	p.submissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "fiscal",
		Name:      "submissions_total",
		Help:      "Envíos fiscales por resultado (accepted, failed_<kind>, rejected_<kind>).",
	}, []string{"outcome"})

	p.submissionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "fiscal",
		Name:      "submission_duration_seconds",
		Help:      "Duración de SubmitInvoice en segundos.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"outcome"})

	p.tokenRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "fiscal",
		Name:      "token_refreshes_total",
		Help:      "Autenticaciones contra el proveedor por ambiente y resultado.",
	}, []string{"environment", "success"})

	p.sweepRecovered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "fiscal",
		Name:      "retry_sweep_recovered_total",
		Help:      "Jobs interrumpidos pasados a failed por el barrido.",
	})
	p.sweepRetried = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "fiscal",
		Name:      "retry_sweep_retried_total",
		Help:      "Reintentos automáticos ejecutados por el barrido.",
	})

	p.registry.MustRegister(
		p.submissions, p.submissionDuration, p.tokenRefreshes, p.sweepRecovered, p.sweepRetried,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *Prometheus) ObserveSubmission(outcome string, duration time.Duration) {
	p.submissions.WithLabelValues(outcome).Inc()
	p.submissionDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (p *Prometheus) ObserveRetrySweep(recovered, retried int) {
	p.sweepRecovered.Add(float64(recovered))
	p.sweepRetried.Add(float64(retried))
}

// ObserveTokenRefresh implementa dian.RefreshObserver.
func (p *Prometheus) ObserveTokenRefresh(environment string, err error) {
	p.tokenRefreshes.WithLabelValues(environment, strconv.FormatBool(err == nil)).Inc()
}

// Handler expone el registry en formato de texto Prometheus.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registry devuelve el registry interno.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}
