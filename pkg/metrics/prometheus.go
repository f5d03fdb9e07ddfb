package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var TotalRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Number of trigger requests.",
	},
	[]string{"path"},
)

var ProviderRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "provider_requests_total",
		Help: "Number of address lookups per ip provider",
	},
	[]string{"provider"},
)

var APIRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dns_api_requests_total",
		Help: "Number of requests sent to the DNS API, by method and status code.",
	},
	[]string{"method", "code"},
)

var RecordChanges = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dns_record_changes_total",
		Help: "Number of record sets created, updated or left unchanged.",
	},
	[]string{"action"},
)

func InitMetrics() {
	prometheus.Register(TotalRequests)
	prometheus.Register(ProviderRequests)
	prometheus.Register(APIRequests)
	prometheus.Register(RecordChanges)
}

func IncrementProvider(provider string) {
	ProviderRequests.WithLabelValues(provider).Inc()
}

func IncrementReqs(r *http.Request) {
	TotalRequests.WithLabelValues(r.URL.Path).Inc()
}

// IncrementAPI counts a DNS API call. code is 0 when no response was received.
func IncrementAPI(method string, code int) {
	APIRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

func IncrementRecordChange(action string) {
	RecordChanges.WithLabelValues(action).Inc()
}

// WriteTextfile dumps the default registry in the node_exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
