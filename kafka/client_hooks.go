package kafka

import (
	"net"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// clientHooks logs broker connects and disconnects and counts the bytes exchanged with each broker.
type clientHooks struct {
	logger *zap.Logger

	requestsSent         *prometheus.CounterVec
	bytesSent            *prometheus.CounterVec
	bytesReceived        *prometheus.CounterVec
	connectionsFailed    *prometheus.CounterVec
	brokerRequestLatency *prometheus.HistogramVec
}

func newClientHooks(logger *zap.Logger, metricsNamespace string, registerer prometheus.Registerer) *clientHooks {
	labels := []string{"broker_id"}
	h := &clientHooks{
		logger: logger,
		requestsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "kafka",
			Name:      "requests_sent_total",
			Help:      "Number of requests sent to each Kafka broker",
		}, labels),
		bytesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "kafka",
			Name:      "sent_bytes",
			Help:      "Bytes written to each Kafka broker, not counting TLS overhead",
		}, labels),
		bytesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "kafka",
			Name:      "received_bytes",
			Help:      "Bytes read from each Kafka broker, not counting TLS overhead",
		}, labels),
		connectionsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "kafka",
			Name:      "failed_connections_total",
			Help:      "Number of connection attempts to a Kafka broker that failed",
		}, labels),
		brokerRequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "kafka",
			Name:      "response_read_seconds",
			Help:      "Time spent waiting for and reading broker responses",
			Buckets:   prometheus.DefBuckets,
		}, labels),
	}

	if registerer != nil {
		registerer.MustRegister(h.requestsSent, h.bytesSent, h.bytesReceived, h.connectionsFailed, h.brokerRequestLatency)
	}

	return h
}

func brokerLabel(meta kgo.BrokerMetadata) string {
	return strconv.Itoa(int(meta.NodeID))
}

func (c *clientHooks) OnBrokerConnect(meta kgo.BrokerMetadata, dialDur time.Duration, _ net.Conn, err error) {
	if err != nil {
		c.connectionsFailed.WithLabelValues(brokerLabel(meta)).Inc()
		c.logger.Debug("kafka connection failed", zap.String("broker_host", meta.Host), zap.Error(err))
		return
	}
	c.logger.Debug("kafka connection succeeded",
		zap.String("host", meta.Host),
		zap.Duration("dial_duration", dialDur))
}

func (c *clientHooks) OnBrokerDisconnect(meta kgo.BrokerMetadata, _ net.Conn) {
	c.logger.Debug("kafka broker disconnected",
		zap.String("host", meta.Host))
}

func (c *clientHooks) OnBrokerWrite(meta kgo.BrokerMetadata, _ int16, bytesWritten int, _, _ time.Duration, err error) {
	if err != nil {
		return
	}
	broker := brokerLabel(meta)
	c.requestsSent.WithLabelValues(broker).Inc()
	c.bytesSent.WithLabelValues(broker).Add(float64(bytesWritten))
}

func (c *clientHooks) OnBrokerRead(meta kgo.BrokerMetadata, _ int16, bytesRead int, readWait, timeToRead time.Duration, err error) {
	if err != nil {
		return
	}
	broker := brokerLabel(meta)
	c.bytesReceived.WithLabelValues(broker).Add(float64(bytesRead))
	c.brokerRequestLatency.WithLabelValues(broker).Observe((readWait + timeToRead).Seconds())
}
