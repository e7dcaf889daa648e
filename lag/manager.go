package lag

import (
	"context"
	"errors"

	"github.com/twmb/franz-go/pkg/kerr"
	"go.uber.org/zap"
)

var (
	// ErrClusterNotFound is returned by an OffsetSource if it does not serve the requested cluster.
	ErrClusterNotFound = errors.New("cluster not found")
	// ErrGroupNotFound is returned by an OffsetSource if the broker does not know the consumer group.
	ErrGroupNotFound = errors.New("consumer group not found")
)

// Manager answers lag queries. Every query does exactly one OffsetSource call and never returns its error:
// failures are logged and turned into an absent or empty result, which the REST layer reports as not found.
type Manager struct {
	source OffsetSource
	logger *zap.Logger
}

func NewManager(source OffsetSource, logger *zap.Logger) *Manager {
	return &Manager{
		source: source,
		logger: logger.Named("lag"),
	}
}

// GetGroupLag returns the lag summary of a consumer group. The bool is false if the offsets could not be fetched.
func (m *Manager) GetGroupLag(ctx context.Context, clusterID string, groupID string) (GroupLag, bool) {
	offsets, ok := m.fetch(ctx, clusterID, groupID)
	if !ok {
		return GroupLag{}, false
	}

	return Aggregate(clusterID, groupID, BuildPartitionLags(offsets)), true
}

// ListPartitionLags returns the lag of every partition of a consumer group, most lagging first. The returned
// slice is empty (never nil) if the offsets could not be fetched.
func (m *Manager) ListPartitionLags(ctx context.Context, clusterID string, groupID string) []PartitionLag {
	offsets, ok := m.fetch(ctx, clusterID, groupID)
	if !ok {
		return []PartitionLag{}
	}

	return Rank(BuildPartitionLags(offsets))
}

// GetGroupLagDetails returns the lag summary of a consumer group together with its ranked partition lags, both
// computed from a single fetch.
func (m *Manager) GetGroupLagDetails(ctx context.Context, clusterID string, groupID string) (GroupLag, []PartitionLag, bool) {
	offsets, ok := m.fetch(ctx, clusterID, groupID)
	if !ok {
		return GroupLag{}, []PartitionLag{}, false
	}

	lags := BuildPartitionLags(offsets)
	return Aggregate(clusterID, groupID, lags), Rank(lags), true
}

// GetPartitionLag returns the lag of a consumer group on a single partition.
func (m *Manager) GetPartitionLag(ctx context.Context, clusterID string, topicName string, partitionID int32, groupID string) (PartitionLag, bool) {
	offsets, ok := m.fetch(ctx, clusterID, groupID)
	if !ok {
		return PartitionLag{}, false
	}

	for _, partition := range offsets.Partitions {
		if partition.TopicName == topicName && partition.PartitionID == partitionID {
			return BuildPartitionLag(clusterID, groupID, partition), true
		}
	}
	return PartitionLag{}, false
}

func (m *Manager) fetch(ctx context.Context, clusterID string, groupID string) (GroupOffsets, bool) {
	offsets, err := m.source.FetchGroupOffsets(ctx, clusterID, groupID, ReadCommitted)
	if err != nil {
		m.logger.Warn("unable to fetch offsets for consumer group",
			zap.String("cluster_id", clusterID),
			zap.String("consumer_group", groupID),
			zap.String("reason", FailureReason(err)),
			zap.Error(err))
		return GroupOffsets{}, false
	}

	// Records are identified by the requested ids, whatever the source echoed back.
	offsets.ClusterID = clusterID
	offsets.ConsumerGroupID = groupID
	return offsets, true
}

// FailureReason classifies an OffsetSource error.
func FailureReason(err error) string {
	var kafkaErr *kerr.Error
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrClusterNotFound):
		return "cluster_not_found"
	case errors.Is(err, ErrGroupNotFound), errors.Is(err, kerr.GroupIDNotFound):
		return "group_not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &kafkaErr):
		return "kafka_error"
	default:
		return "unknown"
	}
}
