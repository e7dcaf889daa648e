package api

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/cloudhut/klag/lag"
)

type linkFactory struct {
	baseURL      string
	crnAuthority string
}

func newLinkFactory(cfg Config) linkFactory {
	return linkFactory{
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		crnAuthority: cfg.CRNAuthority,
	}
}

// create joins the escaped path segments below /v3.
func (f linkFactory) create(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, segment := range segments {
		escaped[i] = url.PathEscape(segment)
	}
	return f.baseURL + "/v3/" + strings.Join(escaped, "/")
}

func (f linkFactory) partitionLag(l lag.PartitionLag) string {
	return f.create("clusters", l.ClusterID, "topics", l.TopicName,
		"partitions", fmt.Sprint(l.PartitionID), "lags", l.ConsumerGroupID)
}

func (f linkFactory) partitionLags(clusterID, groupID string) string {
	return f.create("clusters", clusterID, "consumer-groups", groupID, "lags")
}

func (f linkFactory) groupLag(clusterID, groupID string) string {
	return f.create("clusters", clusterID, "consumer-groups", groupID, "lag-summary")
}

func (f linkFactory) consumer(clusterID, groupID, consumerID string) string {
	return f.create("clusters", clusterID, "consumer-groups", groupID, "consumers", consumerID)
}

func (f linkFactory) partition(clusterID, topicName string, partitionID int32) string {
	return f.create("clusters", clusterID, "topics", topicName, "partitions", fmt.Sprint(partitionID))
}

func (f linkFactory) groupLagResourceName(clusterID, groupID string) string {
	return fmt.Sprintf("crn://%s/kafka=%s/consumer-group=%s/lag-summary", f.crnAuthority, clusterID, groupID)
}

func (f linkFactory) consumerLagData(l lag.PartitionLag) ConsumerLagData {
	return ConsumerLagData{
		Kind: kindConsumerLag,
		Metadata: ResourceMetadata{
			Self:         f.partitionLag(l),
			ResourceName: lag.ResourceName(f.crnAuthority, l),
		},
		ClusterID:       l.ClusterID,
		ConsumerGroupID: l.ConsumerGroupID,
		TopicName:       l.TopicName,
		PartitionID:     l.PartitionID,
		CurrentOffset:   l.CurrentOffset,
		LogEndOffset:    l.LogEndOffset,
		Lag:             l.Lag,
		ConsumerID:      l.ConsumerID,
		InstanceID:      l.InstanceID,
		ClientID:        l.ClientID,
	}
}

func (f linkFactory) consumerLagDataList(clusterID, groupID string, lags []lag.PartitionLag) ConsumerLagDataList {
	data := make([]ConsumerLagData, len(lags))
	for i, l := range lags {
		data[i] = f.consumerLagData(l)
	}
	return ConsumerLagDataList{
		Kind:     kindConsumerLagList,
		Metadata: CollectionMetadata{Self: f.partitionLags(clusterID, groupID)},
		Data:     data,
	}
}

// consumerGroupLagData leaves the max lag relationships null if there is no partition or member to point at.
func (f linkFactory) consumerGroupLagData(g lag.GroupLag) ConsumerGroupLagData {
	data := ConsumerGroupLagData{
		Kind: kindConsumerGroupLag,
		Metadata: ResourceMetadata{
			Self:         f.groupLag(g.ClusterID, g.ConsumerGroupID),
			ResourceName: f.groupLagResourceName(g.ClusterID, g.ConsumerGroupID),
		},
		ClusterID:         g.ClusterID,
		ConsumerGroupID:   g.ConsumerGroupID,
		MaxLagConsumerID:  g.MaxLagConsumerID,
		MaxLagInstanceID:  g.MaxLagInstanceID,
		MaxLagClientID:    g.MaxLagClientID,
		MaxLagTopicName:   g.MaxLagTopicName,
		MaxLagPartitionID: g.MaxLagPartitionID,
		MaxLag:            g.MaxLag,
		TotalLag:          g.TotalLag,
		PartitionCount:    g.PartitionCount,
		LaggingPartitions: g.LaggingPartitions,
	}
	if g.PartitionCount == 0 {
		return data
	}

	data.MaxLagPartition = &Relationship{Related: f.partition(g.ClusterID, g.MaxLagTopicName, g.MaxLagPartitionID)}
	if g.MaxLagConsumerID != "" {
		data.MaxLagConsumer = &Relationship{Related: f.consumer(g.ClusterID, g.ConsumerGroupID, g.MaxLagConsumerID)}
	}
	return data
}
