package prometheus

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cloudhut/klag/lag"
)

type clusterResolver interface {
	ClusterID(ctx context.Context) (string, error)
}

type groupLister interface {
	ListGroups(ctx context.Context, clusterID string) ([]string, error)
}

type lagReader interface {
	GetGroupLagDetails(ctx context.Context, clusterID string, groupID string) (lag.GroupLag, []lag.PartitionLag, bool)
}

// Exporter is the Prometheus exporter that implements the prometheus.Collector interface. Every scrape computes the
// lag of all allowed consumer groups from scratch.
type Exporter struct {
	cfg     Config
	logger  *zap.Logger
	cluster clusterResolver
	groups  groupLister
	lags    lagReader
	filter  *groupFilter

	// Exporter metrics
	exporterUp            *prometheus.Desc
	failedCollectsCounter *prometheus.CounterVec

	// Consumer group metrics
	groupLagTotal          *prometheus.Desc
	groupLagMax            *prometheus.Desc
	groupLaggingPartitions *prometheus.Desc
	topicPartitionLag      *prometheus.Desc
}

func NewExporter(cfg Config, logger *zap.Logger, cluster clusterResolver, groups groupLister, lags lagReader) (*Exporter, error) {
	filter, err := newGroupFilter(cfg.ConsumerGroups)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group filter: %w", err)
	}

	e := &Exporter{
		cfg:     cfg,
		logger:  logger.Named("exporter"),
		cluster: cluster,
		groups:  groups,
		lags:    lags,
		filter:  filter,
	}
	e.initializeMetrics()

	return e, nil
}

func (e *Exporter) initializeMetrics() {
	e.exporterUp = prometheus.NewDesc(
		prometheus.BuildFQName(e.cfg.Namespace, "exporter", "up"),
		"Build info about this Prometheus Exporter. Gauge value is 0 if one or more scrapes have failed.",
		nil,
		map[string]string{"version": os.Getenv("EXPORTER_VERSION")},
	)
	e.failedCollectsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: e.cfg.Namespace,
			Subsystem: "kafka",
			Name:      "failed_collects_total",
			Help:      "Number of collects that have failed",
		},
		[]string{"type"},
	)

	e.groupLagTotal = prometheus.NewDesc(
		prometheus.BuildFQName(e.cfg.Namespace, "kafka", "consumer_group_lag_total"),
		"Summed lag of all partitions a consumer group has committed offsets for",
		[]string{"group_id"},
		nil,
	)
	e.groupLagMax = prometheus.NewDesc(
		prometheus.BuildFQName(e.cfg.Namespace, "kafka", "consumer_group_lag_max"),
		"Highest lag of a single partition within a consumer group",
		[]string{"group_id", "topic_name", "partition_id"},
		nil,
	)
	e.groupLaggingPartitions = prometheus.NewDesc(
		prometheus.BuildFQName(e.cfg.Namespace, "kafka", "consumer_group_lagging_partitions"),
		"Number of partitions of a consumer group with a lag greater than zero",
		[]string{"group_id"},
		nil,
	)
	e.topicPartitionLag = prometheus.NewDesc(
		prometheus.BuildFQName(e.cfg.Namespace, "kafka", "consumer_group_topic_partition_lag"),
		"The number of messages a consumer group is lagging behind the end offset of a partition",
		[]string{"group_id", "topic_name", "partition_id"},
		nil,
	)
}

// Describe implements the prometheus.Collector interface.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.exporterUp
	ch <- e.groupLagTotal
	ch <- e.groupLagMax
	ch <- e.groupLaggingPartitions
	ch <- e.topicPartitionLag
	e.failedCollectsCounter.Describe(ch)
}

func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.ScrapeTimeout)
	defer cancel()

	ok := e.collectConsumerGroupLags(ctx, ch)
	if ok {
		ch <- prometheus.MustNewConstMetric(e.exporterUp, prometheus.GaugeValue, 1.0)
	} else {
		ch <- prometheus.MustNewConstMetric(e.exporterUp, prometheus.GaugeValue, 0.0)
	}
	e.failedCollectsCounter.Collect(ch)
}

func (e *Exporter) collectConsumerGroupLags(ctx context.Context, ch chan<- prometheus.Metric) bool {
	clusterID, err := e.cluster.ClusterID(ctx)
	if err != nil {
		e.logger.Error("failed to resolve cluster id", zap.Error(err))
		e.failedCollectsCounter.WithLabelValues("cluster_id").Inc()
		return false
	}

	groupIDs, err := e.groups.ListGroups(ctx, clusterID)
	if err != nil {
		e.logger.Error("failed to list consumer groups", zap.Error(err))
		e.failedCollectsCounter.WithLabelValues("list_groups").Inc()
		return false
	}

	isOk := atomic.NewBool(true)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.cfg.Concurrency)
	for _, groupID := range groupIDs {
		if !e.filter.IsAllowed(groupID) {
			continue
		}

		eg.Go(func() error {
			groupLag, partitionLags, ok := e.lags.GetGroupLagDetails(egCtx, clusterID, groupID)
			if !ok {
				// the lag manager logged the cause already
				e.failedCollectsCounter.WithLabelValues("consumer_group_lag").Inc()
				isOk.Store(false)
				return nil
			}
			e.collectGroupLag(ch, groupLag, partitionLags)
			return nil
		})
	}
	_ = eg.Wait()

	return isOk.Load()
}

func (e *Exporter) collectGroupLag(ch chan<- prometheus.Metric, groupLag lag.GroupLag, partitionLags []lag.PartitionLag) {
	groupID := groupLag.ConsumerGroupID
	ch <- prometheus.MustNewConstMetric(
		e.groupLagTotal,
		prometheus.GaugeValue,
		float64(groupLag.TotalLag),
		groupID,
	)
	ch <- prometheus.MustNewConstMetric(
		e.groupLaggingPartitions,
		prometheus.GaugeValue,
		float64(groupLag.LaggingPartitions),
		groupID,
	)
	if groupLag.PartitionCount > 0 {
		ch <- prometheus.MustNewConstMetric(
			e.groupLagMax,
			prometheus.GaugeValue,
			float64(groupLag.MaxLag),
			groupID,
			groupLag.MaxLagTopicName,
			strconv.Itoa(int(groupLag.MaxLagPartitionID)),
		)
	}

	if e.cfg.ConsumerGroups.Granularity == ConsumerGroupGranularityGroup {
		return
	}
	for _, partitionLag := range partitionLags {
		ch <- prometheus.MustNewConstMetric(
			e.topicPartitionLag,
			prometheus.GaugeValue,
			float64(partitionLag.Lag),
			groupID,
			partitionLag.TopicName,
			strconv.Itoa(int(partitionLag.PartitionID)),
		)
	}
}
