package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ecostep"

// Outcome labels shared by the counters below.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Service owns a private registry so tests and multiple apps in one process
// never collide on metric names. A nil *Service records nothing.
type Service struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	httpInflight  prometheus.Gauge
	mailSends     *prometheus.CounterVec
	rateLimitHits *prometheus.CounterVec
	authEvents    *prometheus.CounterVec
	assessments   prometheus.Counter
}

func NewService() *Service {
	s := &Service{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests processed, by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_inflight_requests",
			Help:      "Requests currently being served.",
		}),
		mailSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mail_sends_total",
			Help:      "Outgoing emails by subject and outcome.",
		}, []string{"subject", "outcome"}),
		rateLimitHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Requests rejected by the rate limiter, by route.",
		}, []string{"route"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_events_total",
			Help:      "Signup, login, verification and password reset events.",
		}, []string{"event", "outcome"}),
		assessments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_submitted_total",
			Help:      "Completed pre-assessments.",
		}),
	}

	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		s.httpRequests,
		s.httpDuration,
		s.httpInflight,
		s.mailSends,
		s.rateLimitHits,
		s.authEvents,
		s.assessments,
	)

	return s
}

func (s *Service) Registry() *prometheus.Registry {
	if s == nil {
		return nil
	}
	return s.registry
}

// Handler serves the registry in the Prometheus text format.
func (s *Service) Handler() http.Handler {
	if s == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})
}

// Middleware instruments every request. Routes are labelled with the echo
// route template, so unknown paths collapse into one "unmatched" series.
func (s *Service) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if s == nil {
			return next
		}
		return func(c echo.Context) error {
			s.httpInflight.Inc()
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			s.httpInflight.Dec()

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			status := c.Response().Status

			s.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			s.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			return nil
		}
	}
}

func (s *Service) RecordMail(subject string, err error) {
	if s == nil {
		return
	}
	s.mailSends.WithLabelValues(subject, outcome(err)).Inc()
}

func (s *Service) RecordRateLimited(route string) {
	if s == nil {
		return
	}
	s.rateLimitHits.WithLabelValues(route).Inc()
}

// RecordAuth counts an auth event such as "signup", "login",
// "verification_redeemed" or "reset_completed".
func (s *Service) RecordAuth(event string, err error) {
	if s == nil {
		return
	}
	s.authEvents.WithLabelValues(event, outcome(err)).Inc()
}

func (s *Service) RecordAssessment() {
	if s == nil {
		return
	}
	s.assessments.Inc()
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
