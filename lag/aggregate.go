package lag

// Aggregate reduces the lag records of one group into a GroupLag. The result does not depend on the order of
// lags. If several partitions share the highest lag, the max lag identity is taken from the one Rank would list
// first.
func Aggregate(clusterID string, groupID string, lags []PartitionLag) GroupLag {
	res := GroupLag{
		ClusterID:       clusterID,
		ConsumerGroupID: groupID,
		PartitionCount:  len(lags),
	}

	var worst *PartitionLag
	for i := range lags {
		l := &lags[i]
		res.TotalLag += l.Lag
		if l.Lag > 0 {
			res.LaggingPartitions++
		}
		if worst == nil || compareSeverity(*l, *worst) < 0 {
			worst = l
		}
	}

	if worst == nil {
		return res
	}
	res.MaxLag = worst.Lag
	res.MaxLagConsumerID = worst.ConsumerID
	res.MaxLagClientID = worst.ClientID
	res.MaxLagTopicName = worst.TopicName
	res.MaxLagPartitionID = worst.PartitionID
	if worst.InstanceID != nil {
		id := *worst.InstanceID
		res.MaxLagInstanceID = &id
	}

	return res
}
