package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cloudhut/klag/lag"
)

func strPtr(s string) *string {
	return &s
}

// fakeLagService serves the lags of group g1 in cluster c1 only.
type fakeLagService struct {
	lags []lag.PartitionLag

	lastDeadline time.Time
	panicOnCall  bool
}

func (f *fakeLagService) known(ctx context.Context, clusterID, groupID string) bool {
	if f.panicOnCall {
		panic("lag service exploded")
	}
	f.lastDeadline, _ = ctx.Deadline()
	return clusterID == "c1" && groupID == "g1"
}

func (f *fakeLagService) GetGroupLag(ctx context.Context, clusterID string, groupID string) (lag.GroupLag, bool) {
	if !f.known(ctx, clusterID, groupID) {
		return lag.GroupLag{}, false
	}
	return lag.Aggregate(clusterID, groupID, f.lags), true
}

func (f *fakeLagService) ListPartitionLags(ctx context.Context, clusterID string, groupID string) []lag.PartitionLag {
	if !f.known(ctx, clusterID, groupID) {
		return []lag.PartitionLag{}
	}
	return lag.Rank(f.lags)
}

func (f *fakeLagService) GetPartitionLag(ctx context.Context, clusterID string, topicName string, partitionID int32, groupID string) (lag.PartitionLag, bool) {
	if !f.known(ctx, clusterID, groupID) {
		return lag.PartitionLag{}, false
	}
	for _, l := range f.lags {
		if l.TopicName == topicName && l.PartitionID == partitionID {
			return l, true
		}
	}
	return lag.PartitionLag{}, false
}

type fakeHealth bool

func (f fakeHealth) IsConnected() bool {
	return bool(f)
}

func scenarioLags() []lag.PartitionLag {
	return []lag.PartitionLag{
		{
			ClusterID: "c1", ConsumerGroupID: "g1", TopicName: "topic-1", PartitionID: 1,
			CurrentOffset: 100, LogEndOffset: 101, Lag: 1,
			ConsumerID: "consumer-1", InstanceID: strPtr("instance-1"), ClientID: "client-1",
		},
		{
			ClusterID: "c1", ConsumerGroupID: "g1", TopicName: "topic-1", PartitionID: 2,
			CurrentOffset: 100, LogEndOffset: 200, Lag: 100,
			ConsumerID: "consumer-2", InstanceID: strPtr("instance-2"), ClientID: "client-2",
		},
	}
}

func newTestServer(t *testing.T, modify func(cfg *Config)) (*Server, *fakeLagService, *prometheus.Registry) {
	t.Helper()

	var cfg Config
	cfg.SetDefaults()
	if modify != nil {
		modify(&cfg)
	}
	require.NoError(t, cfg.Validate())

	lags := &fakeLagService{lags: scenarioLags()}
	registry := prometheus.NewRegistry()
	return NewServer(cfg, zap.NewNop(), "klag_test", registry, lags, fakeHealth(true)), lags, registry
}

func get(t *testing.T, handler http.Handler, path string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	for name, values := range header {
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_ListPartitionLags(t *testing.T) {
	s, _, _ := newTestServer(t, nil)

	rec := get(t, s, "/v3/clusters/c1/consumer-groups/g1/lags", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var res ConsumerLagDataList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	assert.Equal(t, "KafkaConsumerLagList", res.Kind)
	assert.Equal(t, "/v3/clusters/c1/consumer-groups/g1/lags", res.Metadata.Self)
	assert.Nil(t, res.Metadata.Next)
	require.Len(t, res.Data, 2)

	first := res.Data[0]
	assert.Equal(t, "KafkaConsumerLag", first.Kind)
	assert.Equal(t, "/v3/clusters/c1/topics/topic-1/partitions/2/lags/g1", first.Metadata.Self)
	assert.Equal(t, "crn:///kafka=c1/topic=topic-1/partition=2/lag=g1", first.Metadata.ResourceName)
	assert.Equal(t, int32(2), first.PartitionID)
	assert.Equal(t, int64(100), first.CurrentOffset)
	assert.Equal(t, int64(200), first.LogEndOffset)
	assert.Equal(t, int64(100), first.Lag)
	assert.Equal(t, "consumer-2", first.ConsumerID)
	require.NotNil(t, first.InstanceID)
	assert.Equal(t, "instance-2", *first.InstanceID)
	assert.Equal(t, "client-2", first.ClientID)

	second := res.Data[1]
	assert.Equal(t, "/v3/clusters/c1/topics/topic-1/partitions/1/lags/g1", second.Metadata.Self)
	assert.Equal(t, "crn:///kafka=c1/topic=topic-1/partition=1/lag=g1", second.Metadata.ResourceName)
	assert.Equal(t, int64(1), second.Lag)
}

func TestServer_ListPartitionLags_UnknownGroup(t *testing.T) {
	s, _, _ := newTestServer(t, nil)

	rec := get(t, s, "/v3/clusters/c1/consumer-groups/g2/lags", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res ConsumerLagDataList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "/v3/clusters/c1/consumer-groups/g2/lags", res.Metadata.Self)
	assert.NotNil(t, res.Data)
	assert.Empty(t, res.Data)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestServer_GetGroupLag(t *testing.T) {
	s, _, _ := newTestServer(t, func(cfg *Config) {
		cfg.BaseURL = "https://lag.example.com/"
		cfg.CRNAuthority = "example.com"
	})

	rec := get(t, s, "/v3/clusters/c1/consumer-groups/g1/lag-summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res ConsumerGroupLagData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "KafkaConsumerGroupLag", res.Kind)
	assert.Equal(t, "https://lag.example.com/v3/clusters/c1/consumer-groups/g1/lag-summary", res.Metadata.Self)
	assert.Equal(t, "crn://example.com/kafka=c1/consumer-group=g1/lag-summary", res.Metadata.ResourceName)
	assert.Equal(t, int64(101), res.TotalLag)
	assert.Equal(t, int64(100), res.MaxLag)
	assert.Equal(t, "topic-1", res.MaxLagTopicName)
	assert.Equal(t, int32(2), res.MaxLagPartitionID)
	assert.Equal(t, "consumer-2", res.MaxLagConsumerID)
	require.NotNil(t, res.MaxLagInstanceID)
	assert.Equal(t, "instance-2", *res.MaxLagInstanceID)
	assert.Equal(t, "client-2", res.MaxLagClientID)
	assert.Equal(t, 2, res.PartitionCount)
	assert.Equal(t, 2, res.LaggingPartitions)
	require.NotNil(t, res.MaxLagConsumer)
	assert.Equal(t, "https://lag.example.com/v3/clusters/c1/consumer-groups/g1/consumers/consumer-2", res.MaxLagConsumer.Related)
	require.NotNil(t, res.MaxLagPartition)
	assert.Equal(t, "https://lag.example.com/v3/clusters/c1/topics/topic-1/partitions/2", res.MaxLagPartition.Related)
}

func TestServer_GetGroupLag_NoPartitions(t *testing.T) {
	s, lags, _ := newTestServer(t, nil)
	lags.lags = nil

	rec := get(t, s, "/v3/clusters/c1/consumer-groups/g1/lag-summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res ConsumerGroupLagData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 0, res.PartitionCount)
	assert.Nil(t, res.MaxLagConsumer)
	assert.Nil(t, res.MaxLagPartition)
	assert.Contains(t, rec.Body.String(), `"max_lag_consumer":null`)
	assert.Contains(t, rec.Body.String(), `"max_lag_partition":null`)
}

func TestServer_GetGroupLag_UnassignedMaxLagPartition(t *testing.T) {
	s, lags, _ := newTestServer(t, nil)
	lags.lags[1].ConsumerID = ""
	lags.lags[1].InstanceID = nil
	lags.lags[1].ClientID = ""

	rec := get(t, s, "/v3/clusters/c1/consumer-groups/g1/lag-summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res ConsumerGroupLagData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Nil(t, res.MaxLagConsumer)
	require.NotNil(t, res.MaxLagPartition)
	assert.Equal(t, "/v3/clusters/c1/topics/topic-1/partitions/2", res.MaxLagPartition.Related)
}

func TestServer_NotFound(t *testing.T) {
	s, _, _ := newTestServer(t, nil)

	paths := []string{
		"/v3/clusters/c2/consumer-groups/g1/lag-summary",
		"/v3/clusters/c1/consumer-groups/g2/lag-summary",
		"/v3/clusters/c1/topics/topic-1/partitions/7/lags/g1",
		"/v3/clusters/c1/topics/topic-2/partitions/1/lags/g1",
		"/v3/unknown",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			rec := get(t, s, path, nil)
			require.Equal(t, http.StatusNotFound, rec.Code)

			var res ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
			assert.Equal(t, http.StatusNotFound, res.ErrorCode)
			assert.NotEmpty(t, res.Message)
		})
	}
}

func TestServer_GetPartitionLag(t *testing.T) {
	s, _, _ := newTestServer(t, nil)

	// the self link of a listed item resolves to the same record
	list := get(t, s, "/v3/clusters/c1/consumer-groups/g1/lags", nil)
	var listed ConsumerLagDataList
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &listed))
	require.NotEmpty(t, listed.Data)

	rec := get(t, s, listed.Data[0].Metadata.Self, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res ConsumerLagData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, listed.Data[0], res)
}

func TestServer_GetPartitionLag_InvalidPartition(t *testing.T) {
	s, _, _ := newTestServer(t, nil)

	for _, partition := range []string{"abc", "-1", "+2", "2147483648", "4294967296"} {
		rec := get(t, s, "/v3/clusters/c1/topics/topic-1/partitions/"+partition+"/lags/g1", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, partition)

		var res ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, http.StatusBadRequest, res.ErrorCode)
	}
}

func TestServer_HeaderCopy(t *testing.T) {
	s, _, _ := newTestServer(t, func(cfg *Config) {
		cfg.HeaderCopy.RequestHeaderName = "X-Correlation-Id"
	})

	tests := []struct {
		name   string
		path   string
		header http.Header
		want   []string
	}{
		{
			name:   "single value",
			path:   "/v3/clusters/c1/consumer-groups/g1/lags",
			header: http.Header{"X-Correlation-Id": {"abc"}},
			want:   []string{"abc"},
		},
		{
			name:   "all values are copied",
			path:   "/v3/clusters/c1/consumer-groups/g1/lag-summary",
			header: http.Header{"X-Correlation-Id": {"abc", "def"}},
			want:   []string{"abc", "def"},
		},
		{
			name:   "copied on error responses",
			path:   "/v3/clusters/c2/consumer-groups/g1/lag-summary",
			header: http.Header{"X-Correlation-Id": {"abc"}},
			want:   []string{"abc"},
		},
		{
			name:   "absent header",
			path:   "/v3/clusters/c1/consumer-groups/g1/lags",
			header: http.Header{"X-Other": {"abc"}},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s, tt.path, tt.header)
			assert.Equal(t, tt.want, rec.Header().Values("X-Correlation-Id"))
		})
	}
}

func TestServer_HeaderCopyDisabled(t *testing.T) {
	s, _, _ := newTestServer(t, nil)

	rec := get(t, s, "/v3/clusters/c1/consumer-groups/g1/lags", http.Header{"X-Correlation-Id": {"abc"}})
	assert.Empty(t, rec.Header().Values("X-Correlation-Id"))
}

func TestServer_RequestID(t *testing.T) {
	s, _, _ := newTestServer(t, nil)

	rec := get(t, s, "/v3/clusters/c1/consumer-groups/g1/lags", http.Header{"X-Request-Id": {"req-1"}})
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-Id"))

	rec = get(t, s, "/v3/clusters/c1/consumer-groups/g1/lags", nil)
	assert.Len(t, rec.Header().Get("X-Request-Id"), 36)
}

func TestServer_RequestTimeout(t *testing.T) {
	s, lags, _ := newTestServer(t, func(cfg *Config) {
		cfg.RequestTimeout = time.Minute
	})

	before := time.Now()
	rec := get(t, s, "/v3/clusters/c1/consumer-groups/g1/lags", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.WithinDuration(t, before.Add(time.Minute), lags.lastDeadline, 5*time.Second)
}

func TestServer_Recovery(t *testing.T) {
	s, lags, _ := newTestServer(t, nil)
	lags.panicOnCall = true

	rec := get(t, s, "/v3/clusters/c1/consumer-groups/g1/lags", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_Health(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()

	for _, connected := range []bool{true, false} {
		s := NewServer(cfg, zap.NewNop(), "klag_test", prometheus.NewRegistry(), &fakeLagService{}, fakeHealth(connected))
		rec := get(t, s, "/healthz", nil)
		if connected {
			assert.Equal(t, http.StatusOK, rec.Code)
		} else {
			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		}
	}
}

func TestServer_Metrics(t *testing.T) {
	s, _, _ := newTestServer(t, nil)

	get(t, s, "/v3/clusters/c1/consumer-groups/g1/lags", nil)
	get(t, s, "/v3/clusters/c1/consumer-groups/g2/lag-summary", nil)

	rec := get(t, s, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `klag_test_api_requests_total{route="/v3/clusters/{clusterId}/consumer-groups/{consumerGroupId}/lags",status_code="200"} 1`)
	assert.Contains(t, body, `klag_test_api_requests_total{route="/v3/clusters/{clusterId}/consumer-groups/{consumerGroupId}/lag-summary",status_code="404"} 1`)
	assert.True(t, strings.Contains(body, "klag_test_api_request_duration_seconds_bucket"))
}

func TestServer_CORS(t *testing.T) {
	s, _, _ := newTestServer(t, func(cfg *Config) {
		cfg.CORS.Enabled = true
		cfg.CORS.AllowedOrigins = []string{"https://console.example.com"}
	})

	rec := get(t, s, "/v3/clusters/c1/consumer-groups/g1/lags", http.Header{"Origin": {"https://console.example.com"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://console.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(cfg *Config)
		wantErr bool
	}{
		{"defaults", func(cfg *Config) {}, false},
		{"port zero", func(cfg *Config) { cfg.Port = 0 }, true},
		{"port too high", func(cfg *Config) { cfg.Port = 70000 }, true},
		{"no request timeout", func(cfg *Config) { cfg.RequestTimeout = 0 }, true},
		{"no shutdown timeout", func(cfg *Config) { cfg.ShutdownTimeout = 0 }, true},
		{"cors without origins", func(cfg *Config) { cfg.CORS.Enabled = true }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			cfg.SetDefaults()
			tt.modify(&cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}
