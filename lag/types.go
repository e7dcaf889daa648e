package lag

import "context"

// IsolationLevel controls which end offset the lag is measured against.
type IsolationLevel int8

const (
	// ReadUncommitted measures lag against the high watermark.
	ReadUncommitted IsolationLevel = iota
	// ReadCommitted measures lag against the last stable offset, so records of open or aborted transactions
	// never count as lag.
	ReadCommitted
)

func (l IsolationLevel) String() string {
	switch l {
	case ReadCommitted:
		return "read_committed"
	case ReadUncommitted:
		return "read_uncommitted"
	default:
		return "unknown"
	}
}

// OffsetSource fetches the raw offset facts of a consumer group. Implementations must either return facts for
// every partition the group has committed offsets for, or an error.
type OffsetSource interface {
	FetchGroupOffsets(ctx context.Context, clusterID string, groupID string, isolation IsolationLevel) (GroupOffsets, error)
}

// GroupOffsets is the facts bundle returned by an OffsetSource.
type GroupOffsets struct {
	ClusterID       string
	ConsumerGroupID string
	Partitions      []PartitionOffsets
}

// PartitionOffsets are the offsets of a single partition as seen by one consumer group.
type PartitionOffsets struct {
	TopicName     string
	PartitionID   int32
	CurrentOffset int64
	LogEndOffset  int64

	// ConsumerID, InstanceID and ClientID identify the group member the partition is assigned to. They are empty
	// if no member is currently assigned.
	ConsumerID string
	InstanceID *string
	ClientID   string
}

// PartitionLag is the lag of one consumer group on one partition.
type PartitionLag struct {
	ClusterID       string
	ConsumerGroupID string
	TopicName       string
	PartitionID     int32
	ConsumerID      string
	InstanceID      *string
	ClientID        string
	CurrentOffset   int64
	LogEndOffset    int64
	Lag             int64
}

// GroupLag summarizes the lag of a whole consumer group.
type GroupLag struct {
	ClusterID         string
	ConsumerGroupID   string
	TotalLag          int64
	MaxLag            int64
	PartitionCount    int
	LaggingPartitions int

	// Identity of the partition with the highest lag. Zero values if the group has no partitions.
	MaxLagConsumerID  string
	MaxLagInstanceID  *string
	MaxLagClientID    string
	MaxLagTopicName   string
	MaxLagPartitionID int32
}
