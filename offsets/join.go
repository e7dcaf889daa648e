package offsets

import (
	"fmt"
	"sort"

	"github.com/twmb/franz-go/pkg/kadm"

	"github.com/cloudhut/klag/lag"
)

type topicPartition struct {
	topic     string
	partition int32
}

type assignee struct {
	memberID   string
	instanceID *string
	clientID   string
}

// assignments maps every partition assigned in a consumer group to the member it is assigned to. Members of
// groups using other protocols than "consumer" (e.g. connect) carry no decodable assignment and are skipped.
func assignments(group kadm.DescribedGroup) map[topicPartition]assignee {
	res := make(map[topicPartition]assignee)
	for _, member := range group.Members {
		assignment, ok := member.Assigned.AsConsumer()
		if !ok || assignment == nil {
			continue
		}
		for _, topic := range assignment.Topics {
			for _, partition := range topic.Partitions {
				res[topicPartition{topic.Topic, partition}] = assignee{
					memberID:   member.MemberID,
					instanceID: member.InstanceID,
					clientID:   member.ClientID,
				}
			}
		}
	}
	return res
}

func committedTopics(committed kadm.OffsetResponses) []string {
	topics := make([]string, 0, len(committed))
	for topic := range committed {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

// joinOffsets creates one PartitionOffsets for every committed partition. A committed partition without a
// listed end offset is an error, since the result would silently miss it.
func joinOffsets(group kadm.DescribedGroup, committed kadm.OffsetResponses, endOffsets kadm.ListedOffsets) ([]lag.PartitionOffsets, error) {
	assigned := assignments(group)

	var partitions []lag.PartitionOffsets
	for topic, committedPartitions := range committed {
		for partitionID, commit := range committedPartitions {
			// -1 means no offset has been committed for this partition
			if commit.At < 0 {
				continue
			}

			end, exists := endOffsets.Lookup(topic, partitionID)
			if !exists {
				return nil, fmt.Errorf("no end offset listed for topic '%v' partition %d", topic, partitionID)
			}
			if end.Err != nil {
				return nil, fmt.Errorf("failed to list end offset for topic '%v' partition %d: %w", topic, partitionID, end.Err)
			}

			p := lag.PartitionOffsets{
				TopicName:     topic,
				PartitionID:   partitionID,
				CurrentOffset: commit.At,
				LogEndOffset:  end.Offset,
			}
			if member, ok := assigned[topicPartition{topic, partitionID}]; ok {
				p.ConsumerID = member.memberID
				p.InstanceID = member.instanceID
				p.ClientID = member.clientID
			}
			partitions = append(partitions, p)
		}
	}

	sort.Slice(partitions, func(i, j int) bool {
		if partitions[i].TopicName != partitions[j].TopicName {
			return partitions[i].TopicName < partitions[j].TopicName
		}
		return partitions[i].PartitionID < partitions[j].PartitionID
	})
	return partitions, nil
}
