package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	prometheus.MustRegister(requestsMetric, durationMetric)
}

var requestsMetric = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "edgekv",
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "Total requests by status code and method",
}, []string{"code", "method"})

var durationMetric = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "edgekv",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "Request latency by method",
	Buckets:   prometheus.DefBuckets,
}, []string{"method"})
