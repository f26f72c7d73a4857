package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	InvoicesPosted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_invoices_posted_total",
		Help: "Invoices committed by the posting engine.",
	})

	InvoicePostFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_invoice_post_failures_total",
		Help: "Rejected or failed invoice postings by reason.",
	}, []string{"reason"})

	InvoiceTotalAmount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pos_invoice_total_amount",
		Help:    "Total amount of posted invoices.",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 5000},
	})

	ShiftsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_shifts_closed_total",
		Help: "Closed cashier shifts.",
	})

	ShiftCashDifference = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pos_shift_cash_difference",
		Help:    "Counted minus expected cash at shift close.",
		Buckets: []float64{-100, -50, -10, -1, 0, 1, 10, 50, 100},
	})
)

// Middleware records request count and latency per matched route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		route := c.Route().Path
		HTTPRequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		HTTPRequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())

		return err
	}
}

// Handler serves the default registry in the Prometheus text format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
