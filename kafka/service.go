package kafka

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"
	"github.com/twmb/franz-go/pkg/kversion"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jellydator/ttlcache/v2"
)

// Service owns the Kafka client that all offset lookups share. kgo.Client is safe for concurrent use.
type Service struct {
	cfg    Config
	Client *kgo.Client
	Admin  *kadm.Client
	logger *zap.Logger

	// requestGroup deduplicates concurrent metadata requests issued on cache misses
	requestGroup  *singleflight.Group
	metadataCache *ttlcache.Cache

	connected *atomic.Bool
}

// NewService creates the Kafka client. Client metrics are registered with registerer if it is not nil.
func NewService(cfg Config, logger *zap.Logger, metricsNamespace string, registerer prometheus.Registerer, opts ...kgo.Opt) (*Service, error) {
	hooksChildLogger := logger.With(zap.String("source", "kafka_client_hooks"))
	hooks := newClientHooks(hooksChildLogger, metricsNamespace, registerer)

	kgoOpts, err := NewKgoConfig(cfg, logger, hooks)
	if err != nil {
		return nil, fmt.Errorf("failed to create a valid kafka client config: %w", err)
	}
	kgoOpts = append(kgoOpts, opts...)

	kafkaClient, err := kgo.NewClient(kgoOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	metadataCache := ttlcache.NewCache()
	metadataCache.SkipTTLExtensionOnHit(true)
	if err := metadataCache.SetTTL(cfg.MetadataCacheTTL); err != nil {
		kafkaClient.Close()
		return nil, fmt.Errorf("failed to configure metadata cache: %w", err)
	}

	return &Service{
		cfg:           cfg,
		Client:        kafkaClient,
		Admin:         kadm.NewClient(kafkaClient),
		logger:        logger,
		requestGroup:  &singleflight.Group{},
		metadataCache: metadataCache,
		connected:     atomic.NewBool(false),
	}, nil
}

// TestConnection tries to fetch Broker metadata and prints some information if connection succeeds. An error will be
// returned if connecting fails.
func (s *Service) TestConnection(ctx context.Context) error {
	s.logger.Info("connecting to Kafka seed brokers, trying to fetch cluster metadata",
		zap.String("seed_brokers", strings.Join(s.cfg.Brokers, ",")))

	req := kmsg.NewPtrMetadataRequest()
	res, err := req.RequestWith(ctx, s.Client)
	if err != nil {
		return fmt.Errorf("failed to request metadata: %w", err)
	}

	// Request versions in order to guess Kafka Cluster version
	versionsReq := kmsg.NewApiVersionsRequest()
	versionsRes, err := versionsReq.RequestWith(ctx, s.Client)
	if err != nil {
		return fmt.Errorf("failed to request api versions: %w", err)
	}
	err = kerr.ErrorForCode(versionsRes.ErrorCode)
	if err != nil {
		return fmt.Errorf("failed to request api versions. Inner kafka error: %w", err)
	}
	versions := kversion.FromApiVersionsResponse(versionsRes)

	clusterID := ""
	if res.ClusterID != nil {
		clusterID = *res.ClusterID
	}
	s.logger.Info("successfully connected to kafka cluster",
		zap.Int("advertised_broker_count", len(res.Brokers)),
		zap.Int("topic_count", len(res.Topics)),
		zap.Int32("controller_id", res.ControllerID),
		zap.String("broker_cluster_id", clusterID),
		zap.String("kafka_version", versions.VersionGuess()))

	s.connected.Store(true)
	return nil
}

// IsConnected reports whether TestConnection has succeeded.
func (s *Service) IsConnected() bool {
	return s.connected.Load()
}

func (s *Service) Close() {
	_ = s.metadataCache.Close()
	s.Client.Close()
}
