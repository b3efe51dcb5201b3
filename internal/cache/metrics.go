package cache

import "github.com/prometheus/client_golang/prometheus"

var (
	cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gateway_status_cache_hits_total",
		Help: "Gateway status lookups served from Redis.",
	})
	cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gateway_status_cache_misses_total",
		Help: "Gateway status lookups that reached the gateway.",
	})
)

func init() {
	prometheus.MustRegister(cacheHits, cacheMisses)
}
