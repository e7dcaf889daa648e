package offsets

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cloudhut/klag/kafka"
	"github.com/cloudhut/klag/lag"
)

// clusterClient is the part of kafka.Service the source needs.
type clusterClient interface {
	ClusterID(ctx context.Context) (string, error)
}

// Source fetches consumer group offsets from Kafka using the admin API. It implements lag.OffsetSource.
type Source struct {
	cluster clusterClient
	admin   *kadm.Client
	logger  *zap.Logger
}

func NewSource(kafkaSvc *kafka.Service, logger *zap.Logger) *Source {
	return &Source{
		cluster: kafkaSvc,
		admin:   kafkaSvc.Admin,
		logger:  logger.Named("offsets"),
	}
}

// FetchGroupOffsets returns the committed offset and the end offset of every partition the group has committed
// offsets for. If any of the requests fails, or any partition is missing, an error is returned.
func (s *Source) FetchGroupOffsets(ctx context.Context, clusterID string, groupID string, isolation lag.IsolationLevel) (lag.GroupOffsets, error) {
	if err := s.checkCluster(ctx, clusterID); err != nil {
		return lag.GroupOffsets{}, err
	}

	var (
		described kadm.DescribedGroup
		committed kadm.OffsetResponses
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		described, err = s.describeGroup(egCtx, groupID)
		return err
	})
	eg.Go(func() error {
		var err error
		committed, err = s.admin.FetchOffsets(egCtx, groupID)
		if err != nil {
			return fmt.Errorf("failed to fetch committed offsets of group '%v': %w", groupID, err)
		}
		if err := committed.Error(); err != nil {
			return fmt.Errorf("failed to fetch committed offsets of group '%v', inner kafka error: %w", groupID, err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		if errors.Is(err, kerr.GroupIDNotFound) && !errors.Is(err, lag.ErrGroupNotFound) {
			err = fmt.Errorf("%w: %w", lag.ErrGroupNotFound, err)
		}
		return lag.GroupOffsets{}, err
	}

	topics := committedTopics(committed)
	endOffsets, err := s.listEndOffsets(ctx, isolation, topics)
	if err != nil {
		return lag.GroupOffsets{}, err
	}

	partitions, err := joinOffsets(described, committed, endOffsets)
	if err != nil {
		return lag.GroupOffsets{}, fmt.Errorf("failed to compute offsets of group '%v': %w", groupID, err)
	}

	s.logger.Debug("fetched consumer group offsets",
		zap.String("consumer_group", groupID),
		zap.String("group_state", described.State),
		zap.Int("topic_count", len(topics)),
		zap.Int("partition_count", len(partitions)),
		zap.Stringer("isolation_level", isolation))

	return lag.GroupOffsets{
		ClusterID:       clusterID,
		ConsumerGroupID: groupID,
		Partitions:      partitions,
	}, nil
}

func (s *Source) checkCluster(ctx context.Context, clusterID string) error {
	servedID, err := s.cluster.ClusterID(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve cluster id: %w", err)
	}
	if servedID != clusterID {
		return fmt.Errorf("cluster '%v' is not served, only '%v' is: %w", clusterID, servedID, lag.ErrClusterNotFound)
	}
	return nil
}

func (s *Source) describeGroup(ctx context.Context, groupID string) (kadm.DescribedGroup, error) {
	groups, err := s.admin.DescribeGroups(ctx, groupID)
	if err != nil {
		return kadm.DescribedGroup{}, fmt.Errorf("failed to describe group '%v': %w", groupID, err)
	}
	group, exists := groups[groupID]
	if !exists {
		return kadm.DescribedGroup{}, fmt.Errorf("group '%v' missing in describe response: %w", groupID, lag.ErrGroupNotFound)
	}
	if group.Err != nil {
		return kadm.DescribedGroup{}, fmt.Errorf("failed to describe group '%v', inner kafka error: %w", groupID, group.Err)
	}
	// Brokers answer describe requests for unknown groups with the Dead state
	if group.State == "Dead" {
		return kadm.DescribedGroup{}, fmt.Errorf("group '%v': %w", groupID, lag.ErrGroupNotFound)
	}

	return group, nil
}

// listEndOffsets lists the end offsets of all partitions of topics. The last stable offset is used for
// read committed, the high watermark otherwise.
func (s *Source) listEndOffsets(ctx context.Context, isolation lag.IsolationLevel, topics []string) (kadm.ListedOffsets, error) {
	if len(topics) == 0 {
		return kadm.ListedOffsets{}, nil
	}

	listFunc := s.admin.ListEndOffsets
	if isolation == lag.ReadCommitted {
		listFunc = s.admin.ListCommittedOffsets
	}

	listed, err := listFunc(ctx, topics...)
	if err != nil {
		var se *kadm.ShardErrors
		if errors.As(err, &se) {
			for _, shardErr := range se.Errs {
				s.logger.Warn("shard error for listing end offsets",
					zap.Int32("broker_id", shardErr.Broker.NodeID),
					zap.Error(shardErr.Err))
			}
		}
		return nil, fmt.Errorf("failed to list %v end offsets: %w", isolation, err)
	}
	if err := listed.Error(); err != nil {
		return nil, fmt.Errorf("failed to list %v end offsets of some partitions: %w", isolation, err)
	}

	return listed, nil
}
