package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var messagesPublished = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kafka_producer_messages_total",
		Help: "Total number of Kafka publish attempts by topic and result",
	},
	[]string{"topic", "result"},
)
