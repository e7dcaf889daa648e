package lag

// BuildPartitionLag derives the lag record for a single partition. A current offset above the log end offset
// happens when the end offset was read before the commit, in that case the lag is 0.
func BuildPartitionLag(clusterID string, groupID string, offsets PartitionOffsets) PartitionLag {
	lag := offsets.LogEndOffset - offsets.CurrentOffset
	if lag < 0 {
		lag = 0
	}

	var instanceID *string
	if offsets.InstanceID != nil {
		id := *offsets.InstanceID
		instanceID = &id
	}

	return PartitionLag{
		ClusterID:       clusterID,
		ConsumerGroupID: groupID,
		TopicName:       offsets.TopicName,
		PartitionID:     offsets.PartitionID,
		ConsumerID:      offsets.ConsumerID,
		InstanceID:      instanceID,
		ClientID:        offsets.ClientID,
		CurrentOffset:   offsets.CurrentOffset,
		LogEndOffset:    offsets.LogEndOffset,
		Lag:             lag,
	}
}

// BuildPartitionLags builds one lag record per partition of the given facts, in input order.
func BuildPartitionLags(offsets GroupOffsets) []PartitionLag {
	lags := make([]PartitionLag, len(offsets.Partitions))
	for i, partition := range offsets.Partitions {
		lags[i] = BuildPartitionLag(offsets.ClusterID, offsets.ConsumerGroupID, partition)
	}
	return lags
}
