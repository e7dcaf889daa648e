package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v2"
	"github.com/pkg/errors"
	"github.com/twmb/franz-go/pkg/kmsg"
)

const (
	clusterIDCacheKey = "cluster-id"

	// clusterIDRequestTimeout bounds the shared metadata request, which outlives the callers waiting on it.
	clusterIDRequestTimeout = 10 * time.Second
)

// ClusterID returns the id this cluster is served under: the configured id, or else the id reported by the
// brokers. The broker reported id is cached for the configured metadata TTL.
func (s *Service) ClusterID(ctx context.Context) (string, error) {
	if s.cfg.ClusterID != "" {
		return s.cfg.ClusterID, nil
	}

	if cached, err := s.metadataCache.Get(clusterIDCacheKey); err == nil {
		return cached.(string), nil
	} else if err != ttlcache.ErrNotFound {
		return "", errors.Wrap(err, "failed to read metadata cache")
	}

	// The request runs detached from ctx so that a caller giving up does not fail the others joining it.
	resCh := s.requestGroup.DoChan(clusterIDCacheKey, func() (interface{}, error) {
		reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), clusterIDRequestTimeout)
		defer cancel()

		clusterID, err := s.requestClusterID(reqCtx)
		if err != nil {
			return nil, err
		}
		if err := s.metadataCache.Set(clusterIDCacheKey, clusterID); err != nil {
			return nil, errors.Wrap(err, "failed to cache cluster id")
		}
		return clusterID, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-resCh:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (s *Service) requestClusterID(ctx context.Context) (string, error) {
	// A metadata request without topics only returns brokers and the cluster id
	req := kmsg.NewPtrMetadataRequest()
	req.Topics = []kmsg.MetadataRequestTopic{}
	res, err := req.RequestWith(ctx, s.Client)
	if err != nil {
		return "", errors.Wrap(err, "failed to request metadata")
	}
	if res.ClusterID == nil || *res.ClusterID == "" {
		return "", fmt.Errorf("brokers did not report a cluster id, configure kafka.clusterId instead")
	}

	return *res.ClusterID, nil
}
