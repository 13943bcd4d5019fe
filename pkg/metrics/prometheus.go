package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	barsTotal          *prometheus.CounterVec
	candidatesTotal    *prometheus.CounterVec
	confirmationsTotal *prometheus.CounterVec
	invalidationsTotal *prometheus.CounterVec
	signalsTotal       *prometheus.CounterVec
	tradesTotal        *prometheus.CounterVec
	riskRejections     *prometheus.CounterVec
	errorsTotal        *prometheus.CounterVec
	equity             prometheus.Gauge
	dailyPnL           prometheus.Gauge
	drawdownPct        prometheus.Gauge
	openPositions      prometheus.Gauge
	lastPrice          *prometheus.GaugeVec
	latency            *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		barsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fractrade_bars_total",
				Help: "Total number of closed bars ingested",
			},
			[]string{"symbol", "timeframe"},
		),
		candidatesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fractrade_candidates_total",
				Help: "Total number of candidate fractals detected",
			},
			[]string{"symbol", "timeframe", "type"},
		),
		confirmationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fractrade_confirmations_total",
				Help: "Total number of fractals confirmed",
			},
			[]string{"symbol", "timeframe", "type"},
		),
		invalidationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fractrade_invalidations_total",
				Help: "Total number of candidate fractals invalidated",
			},
			[]string{"symbol", "timeframe"},
		),
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fractrade_signals_total",
				Help: "Total number of composite signals emitted",
			},
			[]string{"symbol", "direction"},
		),
		tradesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fractrade_trades_total",
				Help: "Total number of trade state transitions",
			},
			[]string{"symbol", "status"},
		),
		riskRejections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fractrade_risk_rejections_total",
				Help: "Total number of signals rejected by risk checks",
			},
			[]string{"reason"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fractrade_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		equity: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fractrade_equity",
			Help: "Current account equity",
		}),
		dailyPnL: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fractrade_daily_pnl",
			Help: "Realized profit and loss for the current UTC day",
		}),
		drawdownPct: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fractrade_drawdown_pct",
			Help: "Current drawdown from peak equity in percent",
		}),
		openPositions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fractrade_open_positions",
			Help: "Number of currently open positions",
		}),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fractrade_last_price",
				Help: "Last recorded close price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fractrade_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordBar(symbol, tf string) {
	r.barsTotal.WithLabelValues(symbol, tf).Inc()
}

func (r *Recorder) RecordCandidate(symbol, tf, typ string) {
	r.candidatesTotal.WithLabelValues(symbol, tf, typ).Inc()
}

func (r *Recorder) RecordConfirmation(symbol, tf, typ string) {
	r.confirmationsTotal.WithLabelValues(symbol, tf, typ).Inc()
}

func (r *Recorder) RecordInvalidation(symbol, tf string) {
	r.invalidationsTotal.WithLabelValues(symbol, tf).Inc()
}

func (r *Recorder) RecordSignal(symbol, direction string) {
	r.signalsTotal.WithLabelValues(symbol, direction).Inc()
}

func (r *Recorder) RecordTrade(symbol, status string) {
	r.tradesTotal.WithLabelValues(symbol, status).Inc()
}

func (r *Recorder) RecordRiskRejection(reason string) {
	r.riskRejections.WithLabelValues(reason).Inc()
}

func (r *Recorder) RecordRiskState(equity, dailyPnL, drawdownPct float64, openPositions int) {
	r.equity.Set(equity)
	r.dailyPnL.Set(dailyPnL)
	r.drawdownPct.Set(drawdownPct)
	r.openPositions.Set(float64(openPositions))
}

// RecordLastPrice records the last close price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
