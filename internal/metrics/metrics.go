// Package metrics defines the Prometheus counters for mail delivery and
// template conversion.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	MessagesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mdmail_messages_sent_total",
		Help: "Total number of messages handed to a provider successfully",
	}, []string{"provider"})
	SendFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mdmail_send_failures_total",
		Help: "Total number of messages a provider failed to deliver, including silenced failures",
	}, []string{"provider"})
	TemplatesConverted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mdmail_templates_converted_total",
		Help: "Total number of Markdown templates converted to text and HTML",
	})
)

func init() {
	prometheus.MustRegister(MessagesSent)
	prometheus.MustRegister(SendFailures)
	prometheus.MustRegister(TemplatesConverted)
}

// WriteTextfile writes every registered metric to path in the text
// exposition format, for collection by node_exporter's textfile collector.
// The file is replaced atomically.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
