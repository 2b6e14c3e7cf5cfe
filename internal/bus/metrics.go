package bus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	published = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mathduel_bus_published_total",
		Help: "Events published to the room channel, by event name.",
	}, []string{"event"})

	publishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mathduel_bus_publish_failures_total",
		Help: "Publish attempts that failed at the transport.",
	}, []string{"event"})

	received = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mathduel_bus_received_total",
		Help: "Events received from the room channel, by event name.",
	}, []string{"event"})

	decodeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mathduel_bus_decode_failures_total",
		Help: "Inbound payloads dropped because they failed strict decoding.",
	}, []string{"event"})
)
