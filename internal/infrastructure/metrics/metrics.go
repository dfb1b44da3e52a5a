package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics gom các collector của checkout widget
type CheckoutMetrics struct {
	// InitiationsTotal đếm kết quả bấm thanh toán theo method và result
	InitiationsTotal *prometheus.CounterVec
	// PopupSettlementsTotal đếm cách attempt kết thúc theo provider
	PopupSettlementsTotal *prometheus.CounterVec
	// RenderFailuresTotal đếm lần dựng view thất bại
	RenderFailuresTotal *prometheus.CounterVec
	// AttemptsInFlight số attempt đang chờ popup
	AttemptsInFlight prometheus.Gauge
}

// NewCheckoutMetrics creates and registers the checkout collectors on reg.
// reg nil -> prometheus.DefaultRegisterer.
func NewCheckoutMetrics(namespace string, reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &CheckoutMetrics{
		InitiationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_initiations_total",
			Help:      "Count of payment initiation outcomes.",
		}, []string{"method", "result"}),
		PopupSettlementsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_popup_settlements_total",
			Help:      "Count of popup attempts by how they settled.",
		}, []string{"provider", "settlement"}),
		RenderFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_render_failures_total",
			Help:      "Count of confirmation view render failures.",
		}, []string{"provider"}),
		AttemptsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "checkout_attempts_in_flight",
			Help:      "Number of popup attempts currently awaited.",
		}),
	}

	m.InitiationsTotal = mustRegister(reg, m.InitiationsTotal)
	m.PopupSettlementsTotal = mustRegister(reg, m.PopupSettlementsTotal)
	m.RenderFailuresTotal = mustRegister(reg, m.RenderFailuresTotal)
	m.AttemptsInFlight = mustRegister(reg, m.AttemptsInFlight)

	return m
}

// mustRegister trả về collector đã đăng ký trước đó nếu trùng
func mustRegister[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
