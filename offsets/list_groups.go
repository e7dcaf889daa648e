package offsets

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"go.uber.org/zap"
)

// ListGroups returns the sorted ids of all consumer groups on the cluster. If some brokers fail to respond, the
// groups of the responding brokers are returned and the failures are logged.
func (s *Source) ListGroups(ctx context.Context, clusterID string) ([]string, error) {
	if err := s.checkCluster(ctx, clusterID); err != nil {
		return nil, err
	}

	listed, err := s.admin.ListGroups(ctx)
	if err != nil {
		var se *kadm.ShardErrors
		if !errors.As(err, &se) || se.AllFailed {
			return nil, fmt.Errorf("failed to list consumer groups: %w", err)
		}
		s.logger.Info("failed to list consumer groups from some brokers", zap.Int("failed_shards", len(se.Errs)))
		for _, shardErr := range se.Errs {
			s.logger.Warn("shard error for listing consumer groups",
				zap.Int32("broker_id", shardErr.Broker.NodeID),
				zap.Error(shardErr.Err))
		}
	}

	return listed.Groups(), nil
}
