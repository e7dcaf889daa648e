package lag

import (
	"cmp"
	"fmt"
	"slices"
)

// Rank returns a copy of lags ordered by severity: highest lag first. Equal lags are ordered by partition id and
// then by topic name, both ascending, so that the order is total and identical for identical input.
func Rank(lags []PartitionLag) []PartitionLag {
	ranked := make([]PartitionLag, len(lags))
	copy(ranked, lags)
	slices.SortFunc(ranked, compareSeverity)
	return ranked
}

// compareSeverity orders a before b (negative result) if a is more severe.
func compareSeverity(a, b PartitionLag) int {
	if c := cmp.Compare(b.Lag, a.Lag); c != 0 {
		return c
	}
	if c := cmp.Compare(a.PartitionID, b.PartitionID); c != 0 {
		return c
	}
	return cmp.Compare(a.TopicName, b.TopicName)
}

// ResourceName returns the CRN of a partition lag, e.g.
// crn:///kafka=cluster-1/topic=orders/partition=2/lag=billing. authority may be empty.
func ResourceName(authority string, l PartitionLag) string {
	return fmt.Sprintf("crn://%s/kafka=%s/topic=%s/partition=%d/lag=%s",
		authority, l.ClusterID, l.TopicName, l.PartitionID, l.ConsumerGroupID)
}
