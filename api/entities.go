package api

// Responses follow the Kafka REST v3 resource shapes.

const (
	kindConsumerLag      = "KafkaConsumerLag"
	kindConsumerLagList  = "KafkaConsumerLagList"
	kindConsumerGroupLag = "KafkaConsumerGroupLag"
)

type ResourceMetadata struct {
	Self         string `json:"self"`
	ResourceName string `json:"resource_name,omitempty"`
}

type CollectionMetadata struct {
	Self string  `json:"self"`
	Next *string `json:"next"`
}

type Relationship struct {
	Related string `json:"related"`
}

type ConsumerLagData struct {
	Kind            string           `json:"kind"`
	Metadata        ResourceMetadata `json:"metadata"`
	ClusterID       string           `json:"cluster_id"`
	ConsumerGroupID string           `json:"consumer_group_id"`
	TopicName       string           `json:"topic_name"`
	PartitionID     int32            `json:"partition_id"`
	CurrentOffset   int64            `json:"current_offset"`
	LogEndOffset    int64            `json:"log_end_offset"`
	Lag             int64            `json:"lag"`
	ConsumerID      string           `json:"consumer_id"`
	InstanceID      *string          `json:"instance_id"`
	ClientID        string           `json:"client_id"`
}

type ConsumerLagDataList struct {
	Kind     string             `json:"kind"`
	Metadata CollectionMetadata `json:"metadata"`
	Data     []ConsumerLagData  `json:"data"`
}

type ConsumerGroupLagData struct {
	Kind              string           `json:"kind"`
	Metadata          ResourceMetadata `json:"metadata"`
	ClusterID         string           `json:"cluster_id"`
	ConsumerGroupID   string           `json:"consumer_group_id"`
	MaxLagConsumerID  string           `json:"max_lag_consumer_id"`
	MaxLagInstanceID  *string          `json:"max_lag_instance_id"`
	MaxLagClientID    string           `json:"max_lag_client_id"`
	MaxLagTopicName   string           `json:"max_lag_topic_name"`
	MaxLagPartitionID int32            `json:"max_lag_partition_id"`
	MaxLag            int64            `json:"max_lag"`
	TotalLag          int64            `json:"total_lag"`
	PartitionCount    int              `json:"partition_count"`
	LaggingPartitions int              `json:"lagging_partitions"`
	MaxLagConsumer    *Relationship    `json:"max_lag_consumer"`
	MaxLagPartition   *Relationship    `json:"max_lag_partition"`
}

type ErrorResponse struct {
	ErrorCode int    `json:"error_code"`
	Message   string `json:"message"`
}
