package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func (s *Server) handleGetGroupLag() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clusterID, groupID := mux.Vars(r)["clusterId"], mux.Vars(r)["consumerGroupId"]

		groupLag, ok := s.lags.GetGroupLag(r.Context(), clusterID, groupID)
		if !ok {
			s.writeError(w, r, http.StatusNotFound,
				fmt.Sprintf("Consumer group lag for '%v' in cluster '%v' could not be found.", groupID, clusterID))
			return
		}

		s.writeJSON(w, r, http.StatusOK, s.links.consumerGroupLagData(groupLag))
	}
}

func (s *Server) handleListPartitionLags() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clusterID, groupID := mux.Vars(r)["clusterId"], mux.Vars(r)["consumerGroupId"]

		lags := s.lags.ListPartitionLags(r.Context(), clusterID, groupID)
		s.writeJSON(w, r, http.StatusOK, s.links.consumerLagDataList(clusterID, groupID, lags))
	}
}

func (s *Server) handleGetPartitionLag() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		clusterID, topicName, groupID := vars["clusterId"], vars["topicName"], vars["consumerGroupId"]

		// ParseUint rejects signs, so the id is only accepted in the form its self link uses
		partitionID, err := strconv.ParseUint(vars["partitionId"], 10, 31)
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest,
				fmt.Sprintf("Partition id '%v' is not a valid partition id.", vars["partitionId"]))
			return
		}

		partitionLag, ok := s.lags.GetPartitionLag(r.Context(), clusterID, topicName, int32(partitionID), groupID)
		if !ok {
			s.writeError(w, r, http.StatusNotFound,
				fmt.Sprintf("Consumer lag for group '%v' on topic '%v' partition %d could not be found.",
					groupID, topicName, partitionID))
			return
		}

		s.writeJSON(w, r, http.StatusOK, s.links.consumerLagData(partitionLag))
	}
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.health.IsConnected() {
			s.writeError(w, r, http.StatusServiceUnavailable, "Kafka connection has not been established.")
			return
		}
		s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) handleNotFound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusNotFound, "HTTP 404 Not Found")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.writeJSON(w, r, status, ErrorResponse{ErrorCode: status, Message: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("failed to write response",
			zap.String("request_id", requestIDFromContext(r.Context())),
			zap.Error(err))
	}
}
